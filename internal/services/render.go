package services

import (
	"fmt"
	"strings"
)

// RenderTemplate substitutes {{paramN}} placeholders (1-indexed) in the
// template body with the corresponding parameter. Placeholders without a
// matching parameter are left verbatim; no escaping is performed, the text is
// opaque to this service.
func RenderTemplate(body string, params []string) string {
	message := body
	for i, param := range params {
		placeholder := fmt.Sprintf("{{param%d}}", i+1)
		message = strings.ReplaceAll(message, placeholder, param)
	}
	return message
}
