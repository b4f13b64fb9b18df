package mirror

import "strings"

// nameReplacer maps every character that is unsafe in a file or directory
// name on common platforms to '-'.
var nameReplacer = strings.NewReplacer(
	"/", "-",
	`\`, "-",
	"?", "-",
	"%", "-",
	"*", "-",
	":", "-",
	"|", "-",
	`"`, "-",
	"<", "-",
	">", "-",
)

// Sanitize returns name with filesystem-unsafe characters replaced by '-'.
// The relative names "." and ".." become dashes so a result always names an
// entry inside its parent. Distinct names may sanitize to the same result;
// callers accept sharing.
func Sanitize(name string) string {
	if name == "." || name == ".." {
		return strings.Repeat("-", len(name))
	}
	return nameReplacer.Replace(name)
}
