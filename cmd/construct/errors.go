package main

import (
	"strings"

	"github.com/klothoplatform/constructs/pkg/construct"
)

// formatError lists every validation problem on its own line. Other errors are printed as is.
func formatError(err error) string {
	verrs := construct.ValidationErrors(err)
	if len(verrs) <= 1 {
		return "Error: " + err.Error()
	}
	sb := new(strings.Builder)
	sb.WriteString("Error: invalid declaration:")
	for _, v := range verrs {
		sb.WriteString("\n  - ")
		sb.WriteString(v.Error())
	}
	return sb.String()
}
