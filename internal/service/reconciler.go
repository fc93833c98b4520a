package service

import (
	"context"
	"fmt"
	"time"

	"feed_ingestor/internal/domain"
)

// Reconciler merges parsed feed data into stored channels, categories and
// items.
type Reconciler struct {
	channels   ChannelStore
	categories CategoryStore
	items      ItemStore
}

func NewReconciler(channels ChannelStore, categories CategoryStore, items ItemStore) *Reconciler {
	return &Reconciler{
		channels:   channels,
		categories: categories,
		items:      items,
	}
}

// Reconcile finds or creates the channel of source. An existing channel is
// overwritten with record when its last update is unknown or differs from
// the parsed one.
func (r *Reconciler) Reconcile(ctx context.Context, source *domain.FeedSource, record *domain.ChannelRecord) (*domain.Channel, domain.ReconcileStatus, error) {
	candidate := &domain.Channel{
		FeedSourceID: source.ID,
		Kind:         source.Kind,
	}
	record.Apply(candidate)

	ch, created, err := r.channels.GetOrCreate(ctx, candidate)
	if err != nil {
		return nil, "", fmt.Errorf("get or create channel: %w", err)
	}
	if created {
		return ch, domain.StatusCreated, nil
	}

	if !lastUpdateChanged(ch.LastUpdate, record.LastUpdate) {
		return ch, domain.StatusUnchanged, nil
	}

	record.Apply(ch)
	if err := r.channels.Update(ctx, ch); err != nil {
		return nil, "", fmt.Errorf("update channel: %w", err)
	}

	return ch, domain.StatusUpdated, nil
}

func lastUpdateChanged(stored, parsed *time.Time) bool {
	if stored == nil || parsed == nil {
		return true
	}
	return !stored.Equal(*parsed)
}

// UpsertCategories stores every node and returns their ids in node order.
// Nodes are visited in order so a parent always resolves before its children.
func (r *Reconciler) UpsertCategories(ctx context.Context, nodes []domain.CategoryNode) ([]int64, error) {
	ids := make([]int64, len(nodes))

	for i, node := range nodes {
		var parentID *int64
		if node.Parent != domain.NoParent {
			if node.Parent < 0 || node.Parent >= i {
				return nil, fmt.Errorf("category %q: parent %d not yet resolved", node.Name, node.Parent)
			}
			parentID = &ids[node.Parent]
		}

		id, err := r.categories.Upsert(ctx, node.Name, parentID)
		if err != nil {
			return nil, fmt.Errorf("upsert category %q: %w", node.Name, err)
		}
		ids[i] = id
	}

	return ids, nil
}

// AssignCategories replaces the category set of ch with categoryIDs.
func (r *Reconciler) AssignCategories(ctx context.Context, ch *domain.Channel, categoryIDs []int64) error {
	seen := make(map[int64]bool, len(categoryIDs))
	unique := make([]int64, 0, len(categoryIDs))
	for _, id := range categoryIDs {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}

	if err := r.channels.SetCategories(ctx, ch.ID, unique); err != nil {
		return fmt.Errorf("set categories: %w", err)
	}
	return nil
}

// InsertNew stores the items of ch whose guid is not stored yet and returns
// how many were inserted. Within items the first occurrence of a guid wins.
func (r *Reconciler) InsertNew(ctx context.Context, ch *domain.Channel, items []domain.Item) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	seen := make(map[string]bool, len(items))
	unique := make([]domain.Item, 0, len(items))
	guids := make([]string, 0, len(items))
	for _, it := range items {
		guid := it.Base().GUID
		if seen[guid] {
			continue
		}
		seen[guid] = true
		unique = append(unique, it)
		guids = append(guids, guid)
	}

	existing, err := r.items.ExistingGUIDs(ctx, ch.Kind, ch.ID, guids)
	if err != nil {
		return 0, fmt.Errorf("load existing guids: %w", err)
	}

	fresh := make([]domain.Item, 0, len(unique))
	for _, it := range unique {
		if !existing[it.Base().GUID] {
			fresh = append(fresh, it)
		}
	}

	if len(fresh) == 0 {
		return 0, nil
	}

	n, err := r.items.Insert(ctx, ch.Kind, ch.ID, fresh)
	if err != nil {
		return 0, fmt.Errorf("insert items: %w", err)
	}
	return n, nil
}
