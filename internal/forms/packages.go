package forms

import "strings"

const (
	PackageBasic      = "basic"
	PackagePro        = "pro"
	PackageEnterprise = "enterprise"
)

const (
	BillingMonthly = "monthly"
	BillingYearly  = "yearly"
)

// Package is one sellable plan. MonthlyPrice is in euro; zero means the price is quoted on request.
type Package struct {
	Code         string
	Label        string
	MonthlyPrice int
}

var packages = []Package{
	{Code: PackageBasic, Label: "Basic", MonthlyPrice: 100},
	{Code: PackagePro, Label: "Pro", MonthlyPrice: 150},
	{Code: PackageEnterprise, Label: "Enterprise"},
}

func Packages() []Package {
	result := make([]Package, len(packages))
	copy(result, packages)
	return result
}

func LookupPackage(code string) (Package, bool) {
	normalized := strings.ToLower(strings.TrimSpace(code))
	for _, candidate := range packages {
		if candidate.Code == normalized {
			return candidate, true
		}
	}
	return Package{}, false
}

// PackageLabel returns the display label for code, or code itself when it is unknown.
func PackageLabel(code string) string {
	if found, ok := LookupPackage(code); ok {
		return found.Label
	}
	return strings.TrimSpace(code)
}

func IsBillingPeriod(raw string) bool {
	switch strings.TrimSpace(raw) {
	case BillingMonthly, BillingYearly:
		return true
	default:
		return false
	}
}
