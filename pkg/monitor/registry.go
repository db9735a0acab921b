package monitor

import (
	"context"
	"strings"
	"time"

	"github.com/go-redis/redis"
	"github.com/pkg/errors"
)

const scanCount = 100

// ChannelResolver checks that a delivery channel exists within a scope
type ChannelResolver interface {
	ResolveChannel(ctx context.Context, scope, channelID string) error
}

// AddRequest describes a new monitor
type AddRequest struct {
	Scope           string
	URL             string
	Type            string
	IntervalMinutes int // zero means DefaultInterval
	ChannelID       string
	UserID          string
}

// EditRequest is a partial update, nil fields are left unchanged
type EditRequest struct {
	ChannelID       *string
	IntervalMinutes *int
}

// Registry stores monitor descriptors, every mutation is written through to Redis
type Registry struct {
	redis    *redis.Client
	resolver ChannelResolver
	now      func() time.Time
}

// NewRegistry creates a Registry, resolver verifies channels passed to Edit
func NewRegistry(client *redis.Client, resolver ChannelResolver) *Registry {
	return &Registry{
		redis:    client,
		resolver: resolver,
		now:      time.Now,
	}
}

// Add creates a monitor, it never overwrites an existing one
func (r *Registry) Add(ctx context.Context, request AddRequest) (*Descriptor, error) {
	if err := validateScope(request.Scope); err != nil {
		return nil, err
	}
	sourceType, err := ParseSourceType(request.Type)
	if err != nil {
		return nil, err
	}
	if err = validateURL(request.URL); err != nil {
		return nil, err
	}
	if request.IntervalMinutes == 0 {
		request.IntervalMinutes = DefaultInterval
	}
	if err = validateInterval(request.IntervalMinutes); err != nil {
		return nil, err
	}
	if request.ChannelID == "" {
		return nil, invalidInput("channel", "must not be empty")
	}

	descriptor := &Descriptor{
		Scope:           request.Scope,
		URL:             request.URL,
		Type:            sourceType,
		IntervalMinutes: request.IntervalMinutes,
		ChannelID:       request.ChannelID,
		UserID:          request.UserID,
		CreatedAt:       r.now(),
	}
	key := descriptor.Key()

	err = r.redis.WithContext(ctx).Watch(func(tx *redis.Tx) error {
		exists, err := tx.Exists(key).Result()
		if err != nil {
			return err
		}
		if exists > 0 {
			return ErrAlreadyExists
		}

		_, err = tx.Pipelined(func(pipe redis.Pipeliner) error {
			pipe.HMSet(key, descriptor.toHash())
			return nil
		})
		return err
	}, key)
	if err == redis.TxFailedErr {
		// someone else wrote the key between our check and our write
		return nil, ErrAlreadyExists
	}
	if err != nil {
		if err == ErrAlreadyExists {
			return nil, err
		}
		return nil, errors.Wrap(err, "unable to store monitor")
	}

	return descriptor, nil
}

// Remove deletes a monitor and its last-check marker, the dedup set expires on its own
func (r *Registry) Remove(ctx context.Context, scope, url string) error {
	key := Key(scope, url)
	if !IsDescriptorKey(key) {
		return ErrNotFound
	}

	var deleted *redis.IntCmd
	_, err := r.redis.WithContext(ctx).TxPipelined(func(pipe redis.Pipeliner) error {
		deleted = pipe.Del(key)
		pipe.Del(LastCheckKey(key))
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "unable to remove monitor")
	}
	if deleted.Val() == 0 {
		return ErrNotFound
	}

	return nil
}

// Get returns the descriptor of url in scope
func (r *Registry) Get(ctx context.Context, scope, url string) (*Descriptor, error) {
	return r.GetByKey(ctx, Key(scope, url))
}

// GetByKey returns the descriptor stored at key
func (r *Registry) GetByKey(ctx context.Context, key string) (*Descriptor, error) {
	fields, err := r.redis.WithContext(ctx).HGetAll(key).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read monitor %s", key)
	}

	descriptor, err := descriptorFromHash(fields)
	if err != nil {
		return nil, err
	}
	if descriptor.Key() != key {
		return nil, errors.Errorf("descriptor at %s describes %s", key, descriptor.Key())
	}

	return descriptor, nil
}

// Exists reports whether scope monitors url
func (r *Registry) Exists(ctx context.Context, scope, url string) (bool, error) {
	n, err := r.redis.WithContext(ctx).Exists(Key(scope, url)).Result()
	if err != nil {
		return false, errors.Wrap(err, "unable to check monitor")
	}
	return n > 0, nil
}

// List returns every valid descriptor of scope, in no particular order
func (r *Registry) List(ctx context.Context, scope string) ([]Descriptor, error) {
	var descriptors []Descriptor

	err := r.scan(ctx, keyPrefix+escapePattern(scope)+":*", func(key string) error {
		descriptor, err := r.GetByKey(ctx, key)
		if err != nil {
			// partial writes and foreign keys under the prefix are not monitors
			return nil
		}
		if descriptor.Scope != scope {
			return nil
		}

		descriptors = append(descriptors, *descriptor)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return descriptors, nil
}

// Edit applies a partial update to an existing monitor
func (r *Registry) Edit(ctx context.Context, scope, url string, request EditRequest) (*Descriptor, error) {
	if request.ChannelID == nil && request.IntervalMinutes == nil {
		return nil, invalidInput("edit", "provide a new channel or interval")
	}
	if !IsDescriptorKey(Key(scope, url)) {
		return nil, ErrNotFound
	}

	fields := make(map[string]interface{})
	if request.IntervalMinutes != nil {
		if err := validateInterval(*request.IntervalMinutes); err != nil {
			return nil, err
		}
		fields["interval"] = *request.IntervalMinutes
	}
	if request.ChannelID != nil {
		if err := r.resolveChannel(ctx, scope, *request.ChannelID); err != nil {
			return nil, err
		}
		fields["channelId"] = *request.ChannelID
	}

	key := Key(scope, url)
	err := r.redis.WithContext(ctx).Watch(func(tx *redis.Tx) error {
		exists, err := tx.Exists(key).Result()
		if err != nil {
			return err
		}
		if exists == 0 {
			return ErrNotFound
		}

		_, err = tx.Pipelined(func(pipe redis.Pipeliner) error {
			pipe.HMSet(key, fields)
			return nil
		})
		return err
	}, key)
	if err == ErrNotFound || err == redis.TxFailedErr {
		// a failed transaction means the monitor changed or disappeared underneath us
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "unable to update monitor")
	}

	return r.GetByKey(ctx, key)
}

// Scan calls fn for every descriptor key, it walks the keyspace incrementally
func (r *Registry) Scan(ctx context.Context, fn func(key string) error) error {
	return r.scan(ctx, keyPrefix+"*", fn)
}

// Count returns the number of descriptor keys
func (r *Registry) Count(ctx context.Context) (int, error) {
	var count int
	err := r.Scan(ctx, func(string) error {
		count++
		return nil
	})
	return count, err
}

func (r *Registry) scan(ctx context.Context, pattern string, fn func(key string) error) error {
	client := r.redis.WithContext(ctx)
	seen := make(map[string]struct{})

	var cursor uint64
	for {
		keys, next, err := client.Scan(cursor, pattern, scanCount).Result()
		if err != nil {
			return &StoreError{Op: "scan monitors", Err: err}
		}

		for _, key := range keys {
			if !IsDescriptorKey(key) {
				continue
			}
			// SCAN may return a key more than once
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}

			if err = fn(key); err != nil {
				return err
			}
		}

		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

func (r *Registry) resolveChannel(ctx context.Context, scope, channelID string) error {
	if channelID == "" {
		return invalidInput("channel", "must not be empty")
	}
	if r.resolver == nil {
		return invalidInput("channel", "channels cannot be verified")
	}

	err := r.resolver.ResolveChannel(ctx, scope, channelID)
	if err != nil {
		return invalidInput("channel", "channel %s is not available in this server: %s", channelID, err)
	}
	return nil
}

var patternReplacer = strings.NewReplacer(
	`\`, `\\`,
	`*`, `\*`,
	`?`, `\?`,
	`[`, `\[`,
	`]`, `\]`,
)

func escapePattern(value string) string {
	return patternReplacer.Replace(value)
}
