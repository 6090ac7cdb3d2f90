package domain

import "fmt"

const (
	MinRequestPrefixLength = 16
	MaxRequestPrefixLength = 28
)

type AllocateInput struct {
	PrefixLength int
	Region       string
	Owner        string
	ConfigTag    string
}

func (in AllocateInput) String() string {
	return fmt.Sprintf("prefix_length=/%d region=%s owner=%s config_tag=%s", in.PrefixLength, in.Region, in.Owner, in.ConfigTag)
}

func (in AllocateInput) Validate() error {
	if in.PrefixLength < MinRequestPrefixLength || in.PrefixLength > MaxRequestPrefixLength {
		return fmt.Errorf("%w: prefix length /%d outside /%d-/%d", ErrInvalidRequest, in.PrefixLength, MinRequestPrefixLength, MaxRequestPrefixLength)
	}
	return validateOwnership(in.Region, in.Owner, in.ConfigTag)
}

type ClaimInput struct {
	CIDR      string
	Region    string
	Owner     string
	ConfigTag string
}

func (in ClaimInput) String() string {
	return fmt.Sprintf("cidr=%s region=%s owner=%s config_tag=%s", in.CIDR, in.Region, in.Owner, in.ConfigTag)
}

func validateOwnership(region, owner, configTag string) error {
	if err := ValidateRegion(region); err != nil {
		return err
	}
	if owner == "" {
		return fmt.Errorf("%w: owner is required", ErrInvalidRequest)
	}
	if configTag == "" {
		return fmt.Errorf("%w: config tag is required", ErrInvalidRequest)
	}
	return nil
}
