package prompt

import (
	"strings"

	"github.com/tidwall/gjson"

	"akamai-analyzer/internal/rules"
)

// SystemInstructions sets up the model as an Akamai security analyst.
const SystemInstructions = `You are an expert security analyst specializing in Akamai configurations.

Instructions:
- Analyze Akamai security configurations against provided security rules
- Provide detailed security assessments with clear recommendations
- Score configurations based on compliance with security rules
- Identify critical security gaps and vulnerabilities
- Suggest specific improvements for each security finding

Format your answer as Markdown.`

// Build assembles the analysis request. The configuration is embedded
// byte for byte; only the code fence language depends on whether it parses
// as JSON.
func Build(rs []rules.Rule, config string) string {
	var b strings.Builder
	b.WriteString("Analyze this Akamai security configuration against the following rules:\n\n")
	b.WriteString("Rules to check:\n")
	for _, r := range rs {
		b.WriteString("- ")
		b.WriteString(r.String())
		b.WriteString("\n")
	}

	b.WriteString("\nConfiguration:\n")
	fence := fenceFor(config)
	if gjson.Valid(config) {
		b.WriteString(fence + "json\n")
	} else {
		b.WriteString(fence + "\n")
	}
	b.WriteString(config)
	if !strings.HasSuffix(config, "\n") {
		b.WriteString("\n")
	}
	b.WriteString(fence + "\n\n")

	b.WriteString("Provide a detailed security analysis with:\n")
	b.WriteString("1. Overall security score\n")
	b.WriteString("2. Rule-by-rule assessment\n")
	b.WriteString("3. Critical findings\n")
	b.WriteString("4. Recommendations\n")
	return b.String()
}

// fenceFor picks a backtick fence longer than any run inside the content.
func fenceFor(content string) string {
	longest, run := 0, 0
	for _, c := range content {
		if c == '`' {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 0
		}
	}
	n := 3
	if longest >= n {
		n = longest + 1
	}
	return strings.Repeat("`", n)
}
