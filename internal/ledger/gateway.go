// Package ledger implements the agreement state machine behind a group ledger.
//
// The Gateway is the only way to change a group. Each group is owned by one
// worker goroutine that applies intents in arrival order against a private copy
// of the group, saves it, and then publishes an immutable Snapshot. Readers only
// ever see published snapshots.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mmynk/expensekey/internal/calculator"
	"github.com/mmynk/expensekey/internal/models"
	"github.com/mmynk/expensekey/internal/storage"
)

const (
	numShards         = 16
	defaultQueueDepth = 64
)

var (
	// ErrClosed is returned for intents submitted after Close.
	ErrClosed = errors.New("ledger: gateway closed")
	// ErrSaveFailed wraps persistence failures. The intent was rolled back.
	ErrSaveFailed = errors.New("failed to save group")
)

// GroupStore is the persistence collaborator. storage.Store satisfies it.
type GroupStore interface {
	LoadGroup(ctx context.Context, groupID string) (*models.Group, error)
	SaveGroup(ctx context.Context, group *models.Group) error
}

// Result is the outcome of a successfully applied intent.
type Result struct {
	// Snapshot is the group after the intent. For no-ops it is the current snapshot.
	Snapshot *Snapshot
	// Changed is false when the intent was an idempotent no-op.
	Changed bool
	// CreatedID is the id of the expense or member the intent created, if any.
	CreatedID string
	// Entries are the activity entries this intent appended, oldest first.
	Entries []models.ActivityEntry
}

type shard struct {
	mu      sync.Mutex
	workers map[string]*groupWorker
}

// Gateway accepts intents and applies them one group at a time.
type Gateway struct {
	persist    GroupStore
	logger     *slog.Logger
	metrics    *gatewayMetrics
	now        func() time.Time
	newID      func() string
	queueDepth int

	shards [numShards]shard
	// closeMu orders worker registration against Close.
	closeMu sync.RWMutex
	quit    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// WithClock overrides the commit timestamp source.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) {
		g.now = now
	}
}

// WithIDGenerator overrides how expense, member and group ids are generated.
func WithIDGenerator(newID func() string) Option {
	return func(g *Gateway) {
		g.newID = newID
	}
}

// WithPromRegistry registers the gateway metrics with reg.
func WithPromRegistry(reg prometheus.Registerer) Option {
	return func(g *Gateway) {
		g.metrics = newGatewayMetrics(reg)
	}
}

// WithQueueDepth sets how many intents may wait per group before Apply blocks.
func WithQueueDepth(depth int) Option {
	return func(g *Gateway) {
		if depth > 0 {
			g.queueDepth = depth
		}
	}
}

// NewGateway creates a gateway backed by persist.
func NewGateway(persist GroupStore, opts ...Option) *Gateway {
	g := &Gateway{
		persist: persist,
		// Default logger will throw away logs
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:        func() time.Time { return time.Now().UTC() },
		newID:      func() string { return uuid.New().String() },
		queueDepth: defaultQueueDepth,
		quit:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.metrics == nil {
		g.metrics = newGatewayMetrics(nil)
	}
	for i := range g.shards {
		g.shards[i].workers = make(map[string]*groupWorker)
	}
	return g
}

// Close stops every group worker. Intents still queued are rejected with ErrClosed.
func (g *Gateway) Close() error {
	g.once.Do(func() {
		g.closeMu.Lock()
		close(g.quit)
		g.closeMu.Unlock()
	})
	g.wg.Wait()
	return nil
}

// CreateGroup creates a group whose founder is its first active member.
func (g *Gateway) CreateGroup(ctx context.Context, name, founderName, founderAvatar, joinKeyHash string) (*Snapshot, error) {
	name = strings.TrimSpace(name)
	founderName = strings.TrimSpace(founderName)
	if name == "" {
		return nil, invalid(opCreateGroup, "group name required")
	}
	if founderName == "" {
		return nil, invalid(opCreateGroup, "founder name required")
	}
	if err := validateAvatar(opCreateGroup, founderAvatar); err != nil {
		return nil, err
	}
	// Close waits for the save and registration to finish, so a group is never
	// persisted without a worker.
	g.closeMu.RLock()
	defer g.closeMu.RUnlock()
	if g.closed() {
		return nil, ErrClosed
	}

	now := g.now()
	founder := models.Member{
		ID:        g.newID(),
		Name:      founderName,
		AvatarURL: founderAvatar,
		Status:    models.MemberActive,
		Approvals: models.NewIDSet(),
	}
	st, err := newStore(&models.Group{
		ID:          g.newID(),
		Name:        name,
		CreatedAt:   now,
		JoinKeyHash: joinKeyHash,
		Members:     []models.Member{founder},
	})
	if err != nil {
		return nil, err
	}
	rec := newRecorder(st, now)
	if _, err := rec.record(founder.ID, fmt.Sprintf("created the group %q", name)); err != nil {
		return nil, err
	}

	if err := g.persist.SaveGroup(ctx, st.toGroup()); err != nil {
		g.metrics.saveFailures.Inc()
		return nil, fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	w := g.registerLocked(st)
	g.metrics.intents.WithLabelValues(opCreateGroup, outcomeCommitted).Inc()
	g.logger.Info("Group created", "group_id", st.id, "founder_id", founder.ID)
	return w.snapshot(), nil
}

// Apply runs intent on behalf of actorID against the group.
//
// Apply either commits and returns the new snapshot, or returns an error and
// leaves the group untouched. Intents for the same group are applied one at a
// time in arrival order.
func (g *Gateway) Apply(ctx context.Context, groupID, actorID string, intent Intent) (*Result, error) {
	if intent == nil {
		return nil, invalid("Apply", "intent required")
	}
	if err := intent.Validate(); err != nil {
		g.metrics.intents.WithLabelValues(intent.Name(), outcomeOf(err)).Inc()
		return nil, err
	}
	w, err := g.worker(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return w.submit(ctx, actorID, intent)
}

// Snapshot returns the latest published snapshot of a group.
func (g *Gateway) Snapshot(ctx context.Context, groupID string) (*Snapshot, error) {
	w, err := g.worker(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return w.snapshot(), nil
}

// Balances computes net balances from the latest snapshot of a group.
func (g *Gateway) Balances(ctx context.Context, groupID string) (map[string]int64, error) {
	snap, err := g.Snapshot(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return snap.Balances()
}

// Settlements suggests transfers that settle the group's balances.
func (g *Gateway) Settlements(ctx context.Context, groupID string) ([]models.Settlement, error) {
	balances, err := g.Balances(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return calculator.SimplifyDebts(balances), nil
}

func (g *Gateway) shardFor(groupID string) *shard {
	h := fnv.New32a()
	h.Write([]byte(groupID))
	return &g.shards[h.Sum32()%numShards]
}

// worker returns the running worker for groupID, loading the group on first use.
func (g *Gateway) worker(ctx context.Context, groupID string) (*groupWorker, error) {
	if groupID == "" {
		return nil, notFound("", "group id required")
	}
	sh := g.shardFor(groupID)
	sh.mu.Lock()
	w, ok := sh.workers[groupID]
	sh.mu.Unlock()
	if ok {
		return w, nil
	}

	if g.closed() {
		return nil, ErrClosed
	}

	// Load outside the shard lock so a slow load never blocks other groups.
	group, err := g.persist.LoadGroup(ctx, groupID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, notFound("", "group %s not found", groupID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load group %s: %w", groupID, err)
	}
	st, err := newStore(group)
	if err != nil {
		return nil, violation("", "%v", err)
	}
	return g.register(st)
}

// register starts a worker for st unless another caller won the race.
func (g *Gateway) register(st *store) (*groupWorker, error) {
	g.closeMu.RLock()
	defer g.closeMu.RUnlock()
	if g.closed() {
		return nil, ErrClosed
	}
	return g.registerLocked(st), nil
}

// registerLocked starts a worker for st unless one is already running.
// The caller holds closeMu for reading and has checked that the gateway is open.
func (g *Gateway) registerLocked(st *store) *groupWorker {
	sh := g.shardFor(st.id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if w, ok := sh.workers[st.id]; ok {
		return w
	}
	w := newGroupWorker(g, st)
	sh.workers[st.id] = w
	g.metrics.groupsLoaded.Inc()
	g.wg.Add(1)
	go w.run()
	return w
}

func (g *Gateway) closed() bool {
	select {
	case <-g.quit:
		return true
	default:
		return false
	}
}
