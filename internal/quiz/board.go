package quiz

import (
	"math"
	"strconv"

	"github.com/samber/lo"

	"github.com/Iv91/kidslearning/internal/models"
)

// UnsortedBucket holds every item before the learner moves it.
// A label literally named "unsorted" shares this bucket.
const UnsortedBucket = "unsorted"

// BoardItem is a draggable item. The label it belongs under is kept private.
type BoardItem struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	ImageURL string `json:"image_url,omitempty"`
	label    string
}

// BucketView is one bucket and the items currently in it, in drop order
type BucketView struct {
	Name  string      `json:"name"`
	Items []BoardItem `json:"items"`
}

// Board is the drag-drop sorting surface
type Board struct {
	items   map[string]BoardItem
	order   []string
	buckets map[string][]string
	where   map[string]string
}

// NewBoard places every pair into the unsorted bucket. Item ids are the
// pair's position in the quiz.
func NewBoard(pairs []models.SortPair) *Board {
	labels := lo.Uniq(lo.Map(pairs, func(p models.SortPair, _ int) string { return p.Label }))

	b := &Board{
		items:   make(map[string]BoardItem, len(pairs)),
		order:   append([]string{UnsortedBucket}, lo.Without(labels, UnsortedBucket)...),
		buckets: make(map[string][]string),
		where:   make(map[string]string, len(pairs)),
	}
	for _, name := range b.order {
		b.buckets[name] = []string{}
	}

	for i, p := range pairs {
		id := strconv.Itoa(i)
		b.items[id] = BoardItem{ID: id, Text: p.Item, ImageURL: p.ImageURL, label: p.Label}
		b.buckets[UnsortedBucket] = append(b.buckets[UnsortedBucket], id)
		b.where[id] = UnsortedBucket
	}
	return b
}

// Len returns the number of items on the board
func (b *Board) Len() int {
	return len(b.items)
}

// Move takes an item out of its current bucket and appends it to bucket
func (b *Board) Move(itemID, bucket string) error {
	from, ok := b.where[itemID]
	if !ok {
		return ErrUnknownItem
	}
	if _, ok := b.buckets[bucket]; !ok {
		return ErrUnknownBucket
	}

	b.buckets[from] = lo.Without(b.buckets[from], itemID)
	b.buckets[bucket] = append(b.buckets[bucket], itemID)
	b.where[itemID] = bucket
	return nil
}

// Correct counts items sitting in the bucket named after their label
func (b *Board) Correct() int {
	return lo.CountBy(lo.Values(b.items), func(item BoardItem) bool {
		return b.where[item.ID] == item.label
	})
}

// Percent is the rounded share of correctly placed items
func (b *Board) Percent() int {
	if len(b.items) == 0 {
		return 0
	}
	return int(math.Round(float64(b.Correct()) / float64(len(b.items)) * 100))
}

// Buckets returns every bucket with unsorted first, then labels in order of first appearance
func (b *Board) Buckets() []BucketView {
	return lo.Map(b.order, func(name string, _ int) BucketView {
		return BucketView{
			Name: name,
			Items: lo.Map(b.buckets[name], func(id string, _ int) BoardItem {
				return b.items[id]
			}),
		}
	})
}
