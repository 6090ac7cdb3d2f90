package domain

import (
	"fmt"
	"regexp"
)

var regionPattern = regexp.MustCompile(`^(us|ap|sa|eu|ca)-(east|west|northeast|southeast|south|central)-[1-3]$`)

// accountEnvironments maps an account category to the environment prefix of
// its config tag. Sandbox accounts are provisioned outside this process.
var accountEnvironments = map[string]string{
	"production-pci":         "prod-pci",
	"production":             "prod",
	"nonproduction-customer": "prod",
	"internal":               "nonprod",
}

func ValidateRegion(region string) error {
	if !regionPattern.MatchString(region) {
		return fmt.Errorf("%w: region %q looks invalid", ErrInvalidRequest, region)
	}
	return nil
}

// DeriveConfigTag builds the "<environment>-<region>" classification stored
// on claimed blocks.
func DeriveConfigTag(accountType, region string) (string, error) {
	if accountType == "sandbox" {
		return "", fmt.Errorf("%w: sandbox accounts do not get pooled address space", ErrInvalidRequest)
	}
	env, ok := accountEnvironments[accountType]
	if !ok {
		return "", fmt.Errorf("%w: unknown account type %q", ErrInvalidRequest, accountType)
	}
	if err := ValidateRegion(region); err != nil {
		return "", err
	}
	return env + "-" + region, nil
}

// ResolveConfigTag returns tag when it is set and otherwise derives one from
// accountType. With neither set it returns "", which input validation rejects.
func ResolveConfigTag(tag, accountType, region string) (string, error) {
	if tag != "" || accountType == "" {
		return tag, nil
	}
	return DeriveConfigTag(accountType, region)
}
