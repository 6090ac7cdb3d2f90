// Package redisledger keeps address blocks in Redis: one hash per block plus
// a set indexing every stored CIDR. Writes run as Lua scripts so the version
// check and the write are applied together.
package redisledger

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"strconv"
	"time"

	"github.com/Flarenzy/vpc-cidr-allocator/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultKeyPrefix = "cidr:"

	blockKeyPart = "block:"
	indexKeyPart = "blocks"

	// unconditional marks a script call that skips the version check.
	unconditional = -1
	raceLost      = -1
)

var (
	upsertScript = redis.NewScript(`
local current = tonumber(redis.call("HGET", KEYS[1], "version") or "0")
local expected = tonumber(ARGV[7])
if expected >= 0 and current ~= expected then
	return -1
end
local version = current + 1
redis.call("DEL", KEYS[1])
redis.call("HSET", KEYS[1], "availability", ARGV[2], "version", version, "updated_at", ARGV[6])
if ARGV[3] ~= "" then
	redis.call("HSET", KEYS[1], "region", ARGV[3])
end
if ARGV[4] ~= "" then
	redis.call("HSET", KEYS[1], "owner", ARGV[4])
end
if ARGV[5] ~= "" then
	redis.call("HSET", KEYS[1], "config_tag", ARGV[5])
end
redis.call("SADD", KEYS[2], ARGV[1])
return version`)

	deleteScript = redis.NewScript(`
local current = tonumber(redis.call("HGET", KEYS[1], "version") or "0")
local expected = tonumber(ARGV[2])
if expected >= 0 and current ~= expected then
	return -1
end
redis.call("DEL", KEYS[1])
redis.call("SREM", KEYS[2], ARGV[1])
return 1`)
)

type Ledger struct {
	client redis.UniversalClient
	prefix string
}

func New(client redis.UniversalClient, keyPrefix string) *Ledger {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &Ledger{client: client, prefix: keyPrefix}
}

// Open parses redisURL, connects and checks the connection.
func Open(ctx context.Context, redisURL string) (*Ledger, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return New(client, ""), nil
}

func (l *Ledger) Close() error {
	return l.client.Close()
}

func (l *Ledger) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

func (l *Ledger) LookupExact(ctx context.Context, cidr netip.Prefix) (domain.AddressBlock, error) {
	cidr = cidr.Masked()
	fields, err := l.client.HGetAll(ctx, l.blockKey(cidr)).Result()
	if err != nil {
		return domain.AddressBlock{}, err
	}
	if len(fields) == 0 {
		return domain.AddressBlock{}, fmt.Errorf("%w: %s", domain.ErrNotFound, cidr)
	}
	return decode(cidr, fields)
}

// ScanByPredicate reads every indexed block in one pipeline and filters on
// the client.
func (l *Ledger) ScanByPredicate(ctx context.Context, query domain.BlockQuery) ([]domain.AddressBlock, error) {
	members, err := l.client.SMembers(ctx, l.indexKey()).Result()
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, nil
	}

	cidrs := make([]netip.Prefix, 0, len(members))
	for _, m := range members {
		cidr, err := netip.ParsePrefix(m)
		if err != nil {
			return nil, fmt.Errorf("invalid cidr %q in index: %w", m, err)
		}
		cidrs = append(cidrs, cidr)
	}

	cmds := make([]*redis.MapStringStringCmd, len(cidrs))
	_, err = l.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, cidr := range cidrs {
			cmds[i] = pipe.HGetAll(ctx, l.blockKey(cidr))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var blocks []domain.AddressBlock
	for i, cmd := range cmds {
		fields := cmd.Val()
		// Removed between SMEMBERS and HGETALL.
		if len(fields) == 0 {
			continue
		}
		block, err := decode(cidrs[i], fields)
		if err != nil {
			return nil, err
		}
		if query.Matches(block) {
			blocks = append(blocks, block)
		}
	}
	return blocks, nil
}

func (l *Ledger) Upsert(ctx context.Context, block domain.AddressBlock) (domain.AddressBlock, error) {
	return l.write(ctx, block, unconditional)
}

func (l *Ledger) Delete(ctx context.Context, cidr netip.Prefix) error {
	_, err := l.remove(ctx, cidr, unconditional)
	return err
}

func (l *Ledger) UpsertIfVersion(ctx context.Context, block domain.AddressBlock, expected int64) (domain.AddressBlock, error) {
	return l.write(ctx, block, expected)
}

func (l *Ledger) DeleteIfVersion(ctx context.Context, cidr netip.Prefix, expected int64) error {
	result, err := l.remove(ctx, cidr, expected)
	if err != nil {
		return err
	}
	if result == raceLost {
		return fmt.Errorf("%w: %s changed since version %d", domain.ErrRaceLost, cidr, expected)
	}
	return nil
}

func (l *Ledger) write(ctx context.Context, block domain.AddressBlock, expected int64) (domain.AddressBlock, error) {
	block.CIDR = block.CIDR.Masked()
	if block.UpdatedAt.IsZero() {
		block.UpdatedAt = time.Now().UTC()
	}

	keys := []string{l.blockKey(block.CIDR), l.indexKey()}
	version, err := upsertScript.Run(ctx, l.client, keys,
		block.CIDR.String(),
		string(block.Availability),
		block.Region,
		block.Owner,
		block.ConfigTag,
		block.UpdatedAt.Format(time.RFC3339Nano),
		expected,
	).Int64()
	if err != nil {
		return domain.AddressBlock{}, err
	}
	if version == raceLost {
		return domain.AddressBlock{}, fmt.Errorf("%w: %s changed since version %d", domain.ErrRaceLost, block.CIDR, expected)
	}
	block.Version = version
	return block, nil
}

func (l *Ledger) remove(ctx context.Context, cidr netip.Prefix, expected int64) (int64, error) {
	cidr = cidr.Masked()
	keys := []string{l.blockKey(cidr), l.indexKey()}
	return deleteScript.Run(ctx, l.client, keys, cidr.String(), expected).Int64()
}

func (l *Ledger) blockKey(cidr netip.Prefix) string {
	return l.prefix + blockKeyPart + cidr.String()
}

func (l *Ledger) indexKey() string {
	return l.prefix + indexKeyPart
}

func decode(cidr netip.Prefix, fields map[string]string) (domain.AddressBlock, error) {
	availability, err := domain.ParseAvailability(fields["availability"])
	if err != nil {
		return domain.AddressBlock{}, fmt.Errorf("decode block %s: %w", cidr, err)
	}

	version, err := strconv.ParseInt(fields["version"], 10, 64)
	if err != nil {
		return domain.AddressBlock{}, fmt.Errorf("decode block %s: invalid version %q", cidr, fields["version"])
	}

	var updatedAt time.Time
	if raw := fields["updated_at"]; raw != "" {
		updatedAt, err = time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return domain.AddressBlock{}, errors.Join(fmt.Errorf("decode block %s: invalid updated_at", cidr), err)
		}
	}

	return domain.AddressBlock{
		CIDR:         cidr,
		Availability: availability,
		Region:       fields["region"],
		Owner:        fields["owner"],
		ConfigTag:    fields["config_tag"],
		Version:      version,
		UpdatedAt:    updatedAt,
	}, nil
}
