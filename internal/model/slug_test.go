package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Agentic AI in Retail Banking", "agentic-ai-in-retail-banking"},
		{"Deutsche Börse AG", "deutsche-borse-ag"},
		{"  KYC & AML: What's Next?  ", "kyc-aml-what-s-next"},
		{"Crédit Agricole / Société Générale", "credit-agricole-societe-generale"},
		{"---", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slugify(tt.in), "input %q", tt.in)
	}
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "jpmorgan chase", NormalizeName("  JPMorgan   Chase "))
	assert.Equal(t, "societe generale", NormalizeName("Société Générale"))
}
