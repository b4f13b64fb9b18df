package mirror_test

import (
	"errors"
	"testing"

	"dropmirror/internal/mirror"
)

func TestDecodeManifest(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantErr   bool
		wantName  string
		wantItems int
	}{
		{name: "object", body: `{"name":"Trip","items":[{"id":1},{"id":2}]}`, wantName: "Trip", wantItems: 2},
		{name: "no items field", body: `{"name":"Trip"}`, wantName: "Trip"},
		{name: "null items", body: `{"name":"Trip","items":null}`, wantName: "Trip"},
		{name: "numeric name", body: `{"name":2024,"items":[]}`, wantName: "2024"},
		{name: "object name", body: `{"name":{"en":"Trip"},"items":[]}`, wantName: ""},
		{name: "array body", body: `[1,2,3]`},
		{name: "items not a list", body: `{"items":{"id":1}}`, wantErr: true},
		{name: "null body", body: `null`, wantErr: true},
		{name: "empty body", body: "  \n", wantErr: true},
		{name: "truncated body", body: `{"items": [`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := mirror.DecodeManifest([]byte(tt.body))
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeManifest() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if m.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", m.Name, tt.wantName)
			}
			if len(m.Items) != tt.wantItems {
				t.Errorf("len(Items) = %d, want %d", len(m.Items), tt.wantItems)
			}
			if string(m.Raw) != tt.body {
				t.Errorf("Raw = %q, want body as received", m.Raw)
			}
		})
	}
}

func TestDecodeItem(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    mirror.Item
		wantErr bool
	}{
		{
			name: "plain",
			raw:  `{"id":7,"type":"image","name":"beach","content":"https://cdn.example/beach.jpg","mime":"image/png"}`,
			want: mirror.Item{ID: "7", Type: "image", Name: "beach", Content: "https://cdn.example/beach.jpg", MIME: "image/png"},
		},
		{
			name: "object content is dropped",
			raw:  `{"id":"8","type":"text","content":{"body":"hi"}}`,
			want: mirror.Item{ID: "8", Type: "text"},
		},
		{
			name: "numeric name keeps its literal",
			raw:  `{"id":9,"type":"file","name":12,"extension":null,"url":"https://cdn.example/x"}`,
			want: mirror.Item{ID: "9", Type: "file", Name: "12", URL: "https://cdn.example/x"},
		},
		{name: "not an object", raw: `5`, wantErr: true},
		{name: "unusable id", raw: `{"id":{"v":1},"type":"image"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := mirror.DecodeItem([]byte(tt.raw))
			if tt.wantErr {
				if !errors.Is(err, mirror.ErrItem) {
					t.Errorf("DecodeItem() error = %v, want ErrItem", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeItem() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("DecodeItem() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
