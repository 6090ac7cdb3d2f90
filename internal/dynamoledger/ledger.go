// Package dynamoledger stores address blocks in the DynamoDB table used by the
// VPC provisioning process (ip_allocations, keyed by cidr).
package dynamoledger

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/Flarenzy/vpc-cidr-allocator/internal/domain"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
)

const DefaultTable = "ip_allocations"

// item mirrors the table's attribute names. Records written before versions
// were introduced carry no version attribute and are read as version 1.
type item struct {
	CIDR          string `dynamodbav:"cidr"`
	Size          string `dynamodbav:"size,omitempty"`
	Availability  string `dynamodbav:"availability"`
	Region        string `dynamodbav:"region,omitempty"`
	AccountID     string `dynamodbav:"account_id,omitempty"`
	ConfigOptions string `dynamodbav:"config_options,omitempty"`
	Version       int64  `dynamodbav:"version,omitempty"`
	UpdatedAt     string `dynamodbav:"updated_at,omitempty"`
}

type Ledger struct {
	client dynamodbiface.DynamoDBAPI
	table  string
}

func New(client dynamodbiface.DynamoDBAPI, table string) *Ledger {
	if table == "" {
		table = DefaultTable
	}
	return &Ledger{client: client, table: table}
}

// NewFromConfig builds a client for region. A non-empty endpoint points the
// client at DynamoDB Local or another compatible service.
func NewFromConfig(region, endpoint, table string) (*Ledger, error) {
	cfg := aws.NewConfig().WithRegion(region)
	if endpoint != "" {
		cfg = cfg.WithEndpoint(endpoint)
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("create aws session: %w", err)
	}
	return New(dynamodb.New(sess), table), nil
}

func (l *Ledger) Ping(ctx context.Context) error {
	_, err := l.client.DescribeTableWithContext(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(l.table)})
	return err
}

func (l *Ledger) LookupExact(ctx context.Context, cidr netip.Prefix) (domain.AddressBlock, error) {
	out, err := l.client.GetItemWithContext(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(l.table),
		Key:            key(cidr),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return domain.AddressBlock{}, err
	}
	if len(out.Item) == 0 {
		return domain.AddressBlock{}, fmt.Errorf("%w: %s", domain.ErrNotFound, cidr)
	}
	return decode(out.Item)
}

func (l *Ledger) ScanByPredicate(ctx context.Context, query domain.BlockQuery) ([]domain.AddressBlock, error) {
	input := &dynamodb.ScanInput{TableName: aws.String(l.table), ConsistentRead: aws.Bool(true)}

	var filters []string
	names := map[string]*string{}
	values := map[string]*dynamodb.AttributeValue{}
	if query.PrefixLength != 0 {
		filters = append(filters, "#size = :size")
		names["#size"] = aws.String("size")
		values[":size"] = str(domain.FormatSize(query.PrefixLength))
	}
	if query.Availability != "" {
		filters = append(filters, "availability = :availability")
		values[":availability"] = str(string(query.Availability))
	}
	if query.Region != "" {
		filters = append(filters, "#region = :region")
		names["#region"] = aws.String("region")
		values[":region"] = str(query.Region)
	}
	if len(filters) > 0 {
		input.FilterExpression = aws.String(strings.Join(filters, " and "))
		input.ExpressionAttributeValues = values
		if len(names) > 0 {
			input.ExpressionAttributeNames = names
		}
	}

	var (
		blocks    []domain.AddressBlock
		decodeErr error
	)
	err := l.client.ScanPagesWithContext(ctx, input, func(page *dynamodb.ScanOutput, _ bool) bool {
		for _, raw := range page.Items {
			block, err := decode(raw)
			if err != nil {
				decodeErr = err
				return false
			}
			blocks = append(blocks, block)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	return blocks, nil
}

func (l *Ledger) Upsert(ctx context.Context, block domain.AddressBlock) (domain.AddressBlock, error) {
	return l.update(ctx, block, 1, nil, nil)
}

func (l *Ledger) Delete(ctx context.Context, cidr netip.Prefix) error {
	_, err := l.client.DeleteItemWithContext(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(l.table),
		Key:       key(cidr),
	})
	return err
}

func (l *Ledger) UpsertIfVersion(ctx context.Context, block domain.AddressBlock, expected int64) (domain.AddressBlock, error) {
	cond, values := versionCondition(expected)
	stored, err := l.update(ctx, block, min(expected, 1), aws.String(cond), values)
	if isConditionFailure(err) {
		return domain.AddressBlock{}, fmt.Errorf("%w: %s changed since version %d", domain.ErrRaceLost, block.CIDR, expected)
	}
	return stored, err
}

func (l *Ledger) DeleteIfVersion(ctx context.Context, cidr netip.Prefix, expected int64) error {
	cond, values := versionCondition(expected)
	input := &dynamodb.DeleteItemInput{
		TableName:           aws.String(l.table),
		Key:                 key(cidr),
		ConditionExpression: aws.String(cond),
	}
	if len(values) > 0 {
		input.ExpressionAttributeNames = map[string]*string{"#version": aws.String("version")}
		input.ExpressionAttributeValues = values
	}
	_, err := l.client.DeleteItemWithContext(ctx, input)
	if isConditionFailure(err) {
		return fmt.Errorf("%w: %s changed since version %d", domain.ErrRaceLost, cidr, expected)
	}
	return err
}

// update writes block and bumps its version. absentVersion is the version a
// record without a version attribute is counted as: 0 for a record that must
// not exist yet, 1 for records that predate versioning.
func (l *Ledger) update(ctx context.Context, block domain.AddressBlock, absentVersion int64, cond *string, condValues map[string]*dynamodb.AttributeValue) (domain.AddressBlock, error) {
	updatedAt := block.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	set := []string{
		"#size = :size",
		"availability = :availability",
		"updated_at = :updated_at",
		"#version = if_not_exists(#version, :base) + :one",
	}
	var remove []string
	values := map[string]*dynamodb.AttributeValue{
		":size":         str(block.Size()),
		":availability": str(string(block.Availability)),
		":updated_at":   str(updatedAt.Format(time.RFC3339Nano)),
		":base":         {N: aws.String(strconv.FormatInt(absentVersion, 10))},
		":one":          {N: aws.String("1")},
	}
	names := map[string]*string{
		"#size":    aws.String("size"),
		"#region":  aws.String("region"),
		"#version": aws.String("version"),
	}

	optional := []struct {
		attr, placeholder, value string
	}{
		{"#region", ":region", block.Region},
		{"account_id", ":account_id", block.Owner},
		{"config_options", ":config_options", block.ConfigTag},
	}
	for _, o := range optional {
		if o.value == "" {
			remove = append(remove, o.attr)
			continue
		}
		set = append(set, o.attr+" = "+o.placeholder)
		values[o.placeholder] = str(o.value)
	}
	for k, v := range condValues {
		values[k] = v
	}

	expr := "SET " + strings.Join(set, ", ")
	if len(remove) > 0 {
		expr += " REMOVE " + strings.Join(remove, ", ")
	}

	out, err := l.client.UpdateItemWithContext(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(l.table),
		Key:                       key(block.CIDR),
		UpdateExpression:          aws.String(expr),
		ConditionExpression:       cond,
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ReturnValues:              aws.String(dynamodb.ReturnValueAllNew),
	})
	if err != nil {
		return domain.AddressBlock{}, err
	}
	return decode(out.Attributes)
}

func versionCondition(expected int64) (string, map[string]*dynamodb.AttributeValue) {
	values := map[string]*dynamodb.AttributeValue{":expected": {N: aws.String(strconv.FormatInt(expected, 10))}}
	switch expected {
	case 0:
		return "attribute_not_exists(cidr)", nil
	case 1:
		return "attribute_exists(cidr) AND (#version = :expected OR attribute_not_exists(#version))", values
	default:
		return "#version = :expected", values
	}
}

func decode(raw map[string]*dynamodb.AttributeValue) (domain.AddressBlock, error) {
	var it item
	if err := dynamodbattribute.UnmarshalMap(raw, &it); err != nil {
		return domain.AddressBlock{}, fmt.Errorf("decode ledger item: %w", err)
	}

	cidr, err := netip.ParsePrefix(it.CIDR)
	if err != nil {
		return domain.AddressBlock{}, fmt.Errorf("decode ledger item: invalid cidr %q", it.CIDR)
	}
	if it.Size != "" && it.Size != domain.FormatSize(cidr.Bits()) {
		return domain.AddressBlock{}, fmt.Errorf("decode ledger item: %s stored with size %s", cidr, it.Size)
	}
	availability, err := domain.ParseAvailability(it.Availability)
	if err != nil {
		return domain.AddressBlock{}, fmt.Errorf("decode ledger item %s: %w", cidr, err)
	}

	version := it.Version
	if version == 0 {
		version = 1
	}
	var updatedAt time.Time
	if it.UpdatedAt != "" {
		updatedAt, err = time.Parse(time.RFC3339Nano, it.UpdatedAt)
		if err != nil {
			return domain.AddressBlock{}, fmt.Errorf("decode ledger item %s: invalid updated_at %q: %w", cidr, it.UpdatedAt, err)
		}
	}

	return domain.AddressBlock{
		CIDR:         cidr.Masked(),
		Availability: availability,
		Region:       it.Region,
		Owner:        it.AccountID,
		ConfigTag:    it.ConfigOptions,
		Version:      version,
		UpdatedAt:    updatedAt,
	}, nil
}

func key(cidr netip.Prefix) map[string]*dynamodb.AttributeValue {
	return map[string]*dynamodb.AttributeValue{"cidr": str(cidr.Masked().String())}
}

func str(s string) *dynamodb.AttributeValue {
	return &dynamodb.AttributeValue{S: aws.String(s)}
}

func isConditionFailure(err error) bool {
	var aerr awserr.Error
	return errors.As(err, &aerr) && aerr.Code() == dynamodb.ErrCodeConditionalCheckFailedException
}
