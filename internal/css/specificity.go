package css

import "regexp"

var (
	idPattern    = regexp.MustCompile(`#[a-zA-Z0-9_-]+`)
	classPattern = regexp.MustCompile(`\.[a-zA-Z0-9_-]+|\[[^\]]+\]|:[a-zA-Z0-9_-]+`)
	namePattern  = regexp.MustCompile(`[a-zA-Z0-9_-]+|::?[a-zA-Z0-9_-]+`)
)

// CalculateSpecificity computes specificity of a single simple selector by
// counting tokens rather than parsing the selector grammar. Every name token
// that is not already counted as an ID or class/attribute/pseudo-class is
// counted as a type selector or pseudo-element, the result never goes below
// zero. Malformed input is accepted.
func CalculateSpecificity(selector string) Specificity {
	ids := len(idPattern.FindAllString(selector, -1))
	classes := len(classPattern.FindAllString(selector, -1))
	elements := len(namePattern.FindAllString(selector, -1)) - (ids + classes)

	return Specificity{
		IDs:      ids,
		Classes:  classes,
		Elements: max(elements, 0),
	}
}
