package http

import (
	"time"

	"github.com/Flarenzy/vpc-cidr-allocator/internal/domain"
)

// AllocateRequest asks for a free block of the given size. Either ConfigTag
// or AccountType must be set; with AccountType the tag is derived from the
// account category and region.
type AllocateRequest struct {
	PrefixLength int    `json:"prefix_length" example:"22" validate:"required"`
	Region       string `json:"region" example:"us-east-1" validate:"required"`
	Owner        string `json:"owner" example:"123456789012" validate:"required"`
	ConfigTag    string `json:"config_tag,omitempty" example:"prod-us-east-1"`
	AccountType  string `json:"account_type,omitempty" example:"production"`
}

// ClaimRequest marks an exact range in use without checking the ledger.
type ClaimRequest struct {
	CIDR        string `json:"cidr" example:"10.0.12.0/22" validate:"required"`
	Region      string `json:"region" example:"us-east-1" validate:"required"`
	Owner       string `json:"owner" example:"123456789012" validate:"required"`
	ConfigTag   string `json:"config_tag,omitempty" example:"prod-us-east-1"`
	AccountType string `json:"account_type,omitempty" example:"production"`
}

// BlockResponse is a ledger record as returned to clients.
type BlockResponse struct {
	CIDR         string    `json:"cidr" example:"10.0.12.0/22"`
	Size         string    `json:"size" example:"/22"`
	Availability string    `json:"availability" example:"in-use"`
	Region       string    `json:"region,omitempty" example:"us-east-1"`
	Owner        string    `json:"owner,omitempty" example:"123456789012"`
	ConfigTag    string    `json:"config_tag,omitempty" example:"prod-us-east-1"`
	Version      int64     `json:"version" example:"1"`
	UpdatedAt    time.Time `json:"updated_at,omitzero" example:"2024-05-10T15:04:05Z"`
	RunID        string    `json:"run_id,omitempty" example:"50e8400-e29b-41d4-a716-446655440000"`
}

// OverlapResponse names two ledger records whose ranges intersect.
type OverlapResponse struct {
	Outer BlockResponse `json:"outer"`
	Inner BlockResponse `json:"inner"`
}

// ErrorResponse is a simple envelope for error messages.
type ErrorResponse struct {
	Error string `json:"error" example:"pool exhausted"`
	Kind  string `json:"kind,omitempty" example:"pool exhausted"`
	RunID string `json:"run_id,omitempty" example:"50e8400-e29b-41d4-a716-446655440000"`
}

func (r AllocateRequest) toInput() (domain.AllocateInput, error) {
	tag, err := domain.ResolveConfigTag(r.ConfigTag, r.AccountType, r.Region)
	if err != nil {
		return domain.AllocateInput{}, err
	}
	return domain.AllocateInput{
		PrefixLength: r.PrefixLength,
		Region:       r.Region,
		Owner:        r.Owner,
		ConfigTag:    tag,
	}, nil
}

func (r ClaimRequest) toInput() (domain.ClaimInput, error) {
	tag, err := domain.ResolveConfigTag(r.ConfigTag, r.AccountType, r.Region)
	if err != nil {
		return domain.ClaimInput{}, err
	}
	return domain.ClaimInput{
		CIDR:      r.CIDR,
		Region:    r.Region,
		Owner:     r.Owner,
		ConfigTag: tag,
	}, nil
}

func blockToResponse(b domain.AddressBlock) BlockResponse {
	return BlockResponse{
		CIDR:         b.CIDR.String(),
		Size:         b.Size(),
		Availability: string(b.Availability),
		Region:       b.Region,
		Owner:        b.Owner,
		ConfigTag:    b.ConfigTag,
		Version:      b.Version,
		UpdatedAt:    b.UpdatedAt,
	}
}

func blocksToResponse(blocks []domain.AddressBlock) []BlockResponse {
	out := make([]BlockResponse, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, blockToResponse(b))
	}
	return out
}

func overlapsToResponse(overlaps []domain.Overlap) []OverlapResponse {
	out := make([]OverlapResponse, 0, len(overlaps))
	for _, o := range overlaps {
		out = append(out, OverlapResponse{
			Outer: blockToResponse(o.Outer),
			Inner: blockToResponse(o.Inner),
		})
	}
	return out
}
