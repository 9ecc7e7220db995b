package drafts

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/KirkDiggler/rpg-builder/internal/entities"
	"github.com/KirkDiggler/rpg-builder/internal/errors"
	"github.com/KirkDiggler/rpg-builder/internal/pkg/clock"
	redisclient "github.com/KirkDiggler/rpg-builder/internal/redis"
)

const (
	draftKeyPrefix = "builder:draft:"
	ownerKeyPrefix = "builder:owner:"
	ownerKeySuffix = ":drafts"

	// Hash fields
	fieldID            = "id"
	fieldOwnerID       = "owner_id"
	fieldName          = "name"
	fieldStatus        = "status"
	fieldStartingLevel = "starting_level"
	fieldAllowFeats    = "allow_feats"
	fieldVariantFlags  = "variant_flags"
	fieldCurrentStep   = "current_step"
	fieldCreatedAt     = "created_at"
	fieldUpdatedAt     = "updated_at"
	stepFieldPrefix    = "step:"
	markFieldPrefix    = "mark:"

	defaultMaxTxRetries = 10
)

// RedisConfig configures the Redis draft repository
type RedisConfig struct {
	Client redisclient.Client
	Clock  clock.Clock

	// MaxTxRetries bounds optimistic transaction retries (default 10)
	MaxTxRetries int
}

// Validate ensures all required dependencies are present
func (cfg *RedisConfig) Validate() error {
	vb := errors.NewValidationBuilder()

	if cfg.Client == nil {
		vb.RequiredField("Client")
	}

	return vb.Build()
}

type redisRepository struct {
	client     redisclient.Client
	clock      clock.Clock
	maxRetries int
}

// NewRedisRepository creates a Redis-backed draft repository.
// Each draft is a hash with one field per step; an owner ZSET scored by
// updated_at drives listing.
func NewRedisRepository(cfg *RedisConfig) (Repository, error) {
	if cfg == nil {
		return nil, errors.InvalidArgument("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid redis repository config")
	}

	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}
	retries := cfg.MaxTxRetries
	if retries <= 0 {
		retries = defaultMaxTxRetries
	}

	return &redisRepository{
		client:     cfg.Client,
		clock:      clk,
		maxRetries: retries,
	}, nil
}

func draftKey(id string) string {
	return draftKeyPrefix + id
}

func ownerKey(ownerID string) string {
	return ownerKeyPrefix + ownerID + ownerKeySuffix
}

func (r *redisRepository) Create(ctx context.Context, input CreateInput) (*CreateOutput, error) {
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	draft := input.Draft.Clone()
	now := r.clock.Now()
	draft.CreatedAt = now
	draft.UpdatedAt = now
	if draft.StepData == nil {
		draft.StepData = entities.StepData{}
	}

	fields, err := encodeDraft(draft)
	if err != nil {
		return nil, err
	}

	key := draftKey(draft.ID)
	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return errors.Wrapf(err, "failed to check existing draft")
		}
		if exists > 0 {
			return errors.AlreadyExistsf("draft %s already exists", draft.ID)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, fields...)
			return nil
		})
		return err
	}, key)
	if err != nil {
		if err == redis.TxFailedErr {
			return nil, errors.AlreadyExistsf("draft %s already exists", draft.ID)
		}
		var domainErr *errors.Error
		if errors.As(err, &domainErr) {
			return nil, err
		}
		return nil, errors.Wrapf(err, "failed to create draft")
	}

	if err := r.index(ctx, draft); err != nil {
		// An unlisted draft would be unreachable for its owner
		if delErr := r.client.Del(ctx, key).Err(); delErr != nil {
			slog.Warn("failed to roll back unindexed draft", "draft_id", draft.ID, "error", delErr)
		}
		return nil, errors.Wrapf(err, "failed to index draft")
	}

	return &CreateOutput{Draft: draft}, nil
}

func (r *redisRepository) Get(ctx context.Context, input GetInput) (*GetOutput, error) {
	if input.ID == "" {
		return nil, errors.InvalidArgument(errDraftIDEmpty)
	}

	fields, err := r.client.HGetAll(ctx, draftKey(input.ID)).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get draft")
	}
	if len(fields) == 0 {
		return nil, errors.NotFoundf("draft with ID %s not found", input.ID)
	}

	draft, err := decodeDraft(fields)
	if err != nil {
		return nil, err
	}

	return &GetOutput{Draft: draft}, nil
}

func (r *redisRepository) ListByOwner(ctx context.Context, input ListByOwnerInput) (*ListByOwnerOutput, error) {
	if input.OwnerID == "" {
		return nil, errors.InvalidArgument(errOwnerIDEmpty)
	}

	index := ownerKey(input.OwnerID)
	ids, err := r.client.ZRevRange(ctx, index, 0, -1).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list owner drafts")
	}
	if len(ids) == 0 {
		return &ListByOwnerOutput{Drafts: []*entities.Draft{}}, nil
	}

	pipe := r.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, draftKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, errors.Wrapf(err, "failed to load owner drafts")
	}

	out := make([]*entities.Draft, 0, len(ids))
	var stale []any
	for i, cmd := range cmds {
		fields, err := cmd.Result()
		if err != nil {
			return nil, errors.Wrapf(err, "failed to load draft %s", ids[i])
		}
		if len(fields) == 0 {
			stale = append(stale, ids[i])
			continue
		}
		draft, err := decodeDraft(fields)
		if err != nil {
			return nil, err
		}
		out = append(out, draft)
	}

	if len(stale) > 0 {
		if err := r.client.ZRem(ctx, index, stale...).Err(); err != nil {
			slog.Warn("failed to prune owner index", "owner_id", input.OwnerID, "error", err)
		}
	}

	sortByRecency(out)

	return &ListByOwnerOutput{Drafts: out}, nil
}

func (r *redisRepository) UpdateStep(ctx context.Context, input UpdateStepInput) (*UpdateStepOutput, error) {
	if err := validateUpdateStep(input); err != nil {
		return nil, err
	}

	var previous entities.Status
	draft, err := r.modify(ctx, input.ID, func(d *entities.Draft) []any {
		previous = applyStep(d, input)
		fields := []any{
			stepFieldPrefix + string(input.Kind), string(d.StepData[input.Kind]),
			fieldStatus, string(d.Status),
			fieldCurrentStep, string(d.CurrentStep),
		}
		if input.MarkComplete {
			fields = append(fields, markFieldPrefix+string(input.Kind), "1")
		}
		return fields
	})
	if err != nil {
		return nil, err
	}

	return &UpdateStepOutput{Draft: draft, PreviousStatus: previous}, nil
}

func (r *redisRepository) UpdateName(ctx context.Context, input UpdateNameInput) (*UpdateNameOutput, error) {
	if input.ID == "" {
		return nil, errors.InvalidArgument(errDraftIDEmpty)
	}

	draft, err := r.modify(ctx, input.ID, func(d *entities.Draft) []any {
		d.Name = input.Name
		return []any{fieldName, d.Name}
	})
	if err != nil {
		return nil, err
	}

	return &UpdateNameOutput{Draft: draft}, nil
}

// modify runs mutate under WATCH and writes the returned fields plus
// updated_at in a MULTI block, retrying when another writer got there first
func (r *redisRepository) modify(ctx context.Context, id string, mutate func(d *entities.Draft) []any) (*entities.Draft, error) {
	key := draftKey(id)

	var result *entities.Draft
	txf := func(tx *redis.Tx) error {
		fields, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return errors.Wrapf(err, "failed to read draft")
		}
		if len(fields) == 0 {
			return errors.NotFoundf("draft with ID %s not found", id)
		}

		draft, err := decodeDraft(fields)
		if err != nil {
			return err
		}

		changes := mutate(draft)
		draft.UpdatedAt = r.clock.Now()
		changes = append(changes, fieldUpdatedAt, formatTime(draft.UpdatedAt))

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, changes...)
			return nil
		})
		if err != nil {
			return err
		}

		result = draft
		return nil
	}

	for attempt := 0; attempt < r.maxRetries; attempt++ {
		err := r.client.Watch(ctx, txf, key)
		if err == nil {
			if err := r.index(ctx, result); err != nil {
				slog.Warn("failed to refresh owner index", "draft_id", id, "error", err)
			}
			return result, nil
		}
		if err == redis.TxFailedErr {
			slog.Debug("draft write conflict, retrying", "draft_id", id, "attempt", attempt+1)
			continue
		}
		var domainErr *errors.Error
		if errors.As(err, &domainErr) {
			return nil, err
		}
		return nil, errors.Wrapf(err, "failed to update draft")
	}

	return nil, errors.Abortedf("draft %s: too many concurrent updates", id)
}

func (r *redisRepository) Delete(ctx context.Context, input DeleteInput) (*DeleteOutput, error) {
	if input.ID == "" {
		return nil, errors.InvalidArgument(errDraftIDEmpty)
	}

	key := draftKey(input.ID)
	ownerID, err := r.client.HGet(ctx, key, fieldOwnerID).Result()
	if err != nil {
		if err == redis.Nil {
			return &DeleteOutput{Deleted: false}, nil
		}
		return nil, errors.Wrapf(err, "failed to get draft owner")
	}

	deleted, err := r.client.Del(ctx, key).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to delete draft")
	}

	// A leftover index entry is pruned by the next listing
	if err := r.client.ZRem(ctx, ownerKey(ownerID), input.ID).Err(); err != nil {
		slog.Warn("failed to remove draft from owner index", "draft_id", input.ID, "error", err)
	}

	return &DeleteOutput{Deleted: deleted > 0}, nil
}

// index scores the draft in its owner's ZSET. The draft hash and the index
// live in different cluster slots, so the index is written outside the
// draft's transaction.
func (r *redisRepository) index(ctx context.Context, d *entities.Draft) error {
	return r.client.ZAdd(ctx, ownerKey(d.OwnerID), redis.Z{
		Score:  float64(d.UpdatedAt.UnixMilli()),
		Member: d.ID,
	}).Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func encodeDraft(d *entities.Draft) ([]any, error) {
	flags := d.VariantFlags
	if flags == nil {
		flags = map[string]any{}
	}
	flagJSON, err := json.Marshal(flags)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to marshal variant flags")
	}

	fields := []any{
		fieldID, d.ID,
		fieldOwnerID, d.OwnerID,
		fieldName, d.Name,
		fieldStatus, string(d.Status),
		fieldStartingLevel, strconv.Itoa(d.StartingLevel),
		fieldAllowFeats, strconv.FormatBool(d.AllowFeats),
		fieldVariantFlags, string(flagJSON),
		fieldCurrentStep, string(d.CurrentStep),
		fieldCreatedAt, formatTime(d.CreatedAt),
		fieldUpdatedAt, formatTime(d.UpdatedAt),
	}
	for kind, raw := range d.StepData {
		fields = append(fields, stepFieldPrefix+string(kind), string(raw))
	}
	for _, kind := range d.MarkedComplete {
		fields = append(fields, markFieldPrefix+string(kind), "1")
	}
	return fields, nil
}

func decodeDraft(fields map[string]string) (*entities.Draft, error) {
	d := &entities.Draft{
		ID:          fields[fieldID],
		OwnerID:     fields[fieldOwnerID],
		Name:        fields[fieldName],
		Status:      entities.Status(fields[fieldStatus]),
		CurrentStep: entities.StepKind(fields[fieldCurrentStep]),
		StepData:    entities.StepData{},
	}

	var err error
	if d.StartingLevel, err = strconv.Atoi(fields[fieldStartingLevel]); err != nil {
		return nil, errors.Wrapf(err, "draft %s: invalid starting level", d.ID)
	}
	if d.AllowFeats, err = strconv.ParseBool(fields[fieldAllowFeats]); err != nil {
		return nil, errors.Wrapf(err, "draft %s: invalid allow_feats", d.ID)
	}
	if raw := fields[fieldVariantFlags]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &d.VariantFlags); err != nil {
			return nil, errors.Wrapf(err, "draft %s: invalid variant flags", d.ID)
		}
	}
	if d.CreatedAt, err = time.Parse(time.RFC3339Nano, fields[fieldCreatedAt]); err != nil {
		return nil, errors.Wrapf(err, "draft %s: invalid created_at", d.ID)
	}
	if d.UpdatedAt, err = time.Parse(time.RFC3339Nano, fields[fieldUpdatedAt]); err != nil {
		return nil, errors.Wrapf(err, "draft %s: invalid updated_at", d.ID)
	}

	for field, value := range fields {
		switch {
		case strings.HasPrefix(field, stepFieldPrefix):
			d.StepData[entities.StepKind(strings.TrimPrefix(field, stepFieldPrefix))] = json.RawMessage(value)
		case strings.HasPrefix(field, markFieldPrefix):
			d.MarkedComplete = append(d.MarkedComplete, entities.StepKind(strings.TrimPrefix(field, markFieldPrefix)))
		}
	}
	sortKinds(d.MarkedComplete)

	return d, nil
}
