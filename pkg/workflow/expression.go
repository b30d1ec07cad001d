package workflow

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/expr-lang/expr"
)

// templateRefRegex matches {{ path.to.value }} placeholders in prompts
var templateRefRegex = regexp.MustCompile(`\{\{\s*([^{}]*?)\s*\}\}`)

var identPathRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*(\.[a-zA-Z0-9_]+)*$`)

// ValidateExpressionSyntax compiles a boolean condition expression.
// Variables are left untyped, so only syntax and result type are checked.
func ValidateExpressionSyntax(expression string) error {
	if strings.TrimSpace(expression) == "" {
		return errors.New("empty expression")
	}
	if _, err := expr.Compile(expression, expr.AllowUndefinedVariables(), expr.AsBool()); err != nil {
		return fmt.Errorf("invalid expression %q: %w", expression, err)
	}
	return nil
}

// ValidateTemplateSyntax checks that every {{ }} placeholder in s is closed
// and names a dotted path such as input.text
func ValidateTemplateSyntax(s string) error {
	depth := 0
	for i := 0; i < len(s)-1; i++ {
		switch s[i : i+2] {
		case "{{":
			if depth > 0 {
				return fmt.Errorf("nested placeholder at position %d", i)
			}
			depth++
			i++
		case "}}":
			if depth == 0 {
				return fmt.Errorf("unmatched closing braces at position %d", i)
			}
			depth--
			i++
		}
	}
	if depth != 0 {
		return errors.New("unclosed placeholder")
	}

	for _, m := range templateRefRegex.FindAllStringSubmatch(s, -1) {
		if m[1] == "" {
			return errors.New("empty placeholder")
		}
		if !identPathRegex.MatchString(m[1]) {
			return fmt.Errorf("invalid placeholder %q", m[1])
		}
	}
	return nil
}

// TemplateVariables returns the distinct root names referenced by
// placeholders in s, in order of first use.
// Example: "Translate {{input.text}} to {{input.lang}}" -> ["input"]
func TemplateVariables(s string) []string {
	var vars []string
	seen := make(map[string]bool)
	for _, m := range templateRefRegex.FindAllStringSubmatch(s, -1) {
		root, _, _ := strings.Cut(m[1], ".")
		if root == "" || seen[root] {
			continue
		}
		seen[root] = true
		vars = append(vars, root)
	}
	return vars
}
