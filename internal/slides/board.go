package slides

import (
	"cmp"
	"fmt"
	"slices"
	"time"
)

// Action names a board operation.
type Action string

const (
	ActionActivate   Action = "activate"
	ActionDeactivate Action = "deactivate"
	ActionMoveUp     Action = "move_up"
	ActionMoveDown   Action = "move_down"
	ActionExpire     Action = "expire"
	ActionCreate     Action = "create"
	ActionUpdate     Action = "update"
	ActionDelete     Action = "delete"
)

// Mutation is the set of writes produced by one board operation.
type Mutation struct {
	Action  Action
	Changes []SlideChange
}

// Empty reports whether the operation was a no-op.
func (m Mutation) Empty() bool {
	return len(m.Changes) == 0
}

// Board is the in-memory slide list that admin operations mutate before
// anything is persisted.
type Board struct {
	slides []Slide
}

// NewBoard copies records into a new board.
func NewBoard(records []Slide) *Board {
	return &Board{slides: append([]Slide(nil), records...)}
}

// Slides returns a copy of the current list.
func (b *Board) Slides() []Slide {
	return append([]Slide(nil), b.slides...)
}

// Find looks up a slide by identifier.
func (b *Board) Find(id string) (Slide, bool) {
	for _, slide := range b.slides {
		if slide.ID == id {
			return slide, true
		}
	}
	return Slide{}, false
}

// Partition returns the slides of one type and state sorted by (order, id).
func (b *Board) Partition(slideType SlideType, active bool) []Slide {
	partition := make([]Slide, 0, len(b.slides))
	for _, slide := range b.slides {
		if slide.Type == slideType && slide.IsActive == active {
			partition = append(partition, slide)
		}
	}
	SortByPosition(partition)
	return partition
}

// NextOrder returns max(order)+1 over the partition, ignoring excludeID. An empty partition yields 1.
func (b *Board) NextOrder(slideType SlideType, active bool, excludeID string) int64 {
	var highest int64
	found := false
	for _, slide := range b.slides {
		if slide.ID == excludeID || slide.Type != slideType || slide.IsActive != active {
			continue
		}
		if !found || slide.Order > highest {
			highest = slide.Order
			found = true
		}
	}
	return highest + 1
}

// Activate switches a slide on at the back of its type's ON partition.
func (b *Board) Activate(id string, now time.Time) (Mutation, error) {
	current, ok := b.Find(id)
	if !ok {
		return Mutation{}, fmt.Errorf("%w: %s", ErrSlideNotFound, id)
	}
	if current.IsActive {
		return Mutation{}, fmt.Errorf("%w: %s", ErrSlideAlreadyActive, id)
	}
	_, end := current.Window()
	if EndedBefore(end, now.UnixMilli()) {
		return Mutation{}, fmt.Errorf("%w: %s", ErrPeriodExpired, id)
	}

	order := b.NextOrder(current.Type, true, id)
	next := InactiveSlide{slide: current}.Activate(order, now).Slide()
	b.replace(next)

	return Mutation{
		Action: ActionActivate,
		Changes: []SlideChange{{
			ID:        next.ID,
			IsActive:  boolPointer(true),
			Order:     int64Pointer(next.Order),
			UpdatedAt: now,
		}},
	}, nil
}

// Deactivate switches a slide off at the back of its type's OFF partition.
func (b *Board) Deactivate(id string, now time.Time) (Mutation, error) {
	current, ok := b.Find(id)
	if !ok {
		return Mutation{}, fmt.Errorf("%w: %s", ErrSlideNotFound, id)
	}
	if !current.IsActive {
		return Mutation{}, fmt.Errorf("%w: %s", ErrSlideAlreadyInactive, id)
	}

	order := b.NextOrder(current.Type, false, id)
	next := ActiveSlide{slide: current}.Deactivate(order, now).Slide()
	b.replace(next)

	return Mutation{
		Action: ActionDeactivate,
		Changes: []SlideChange{{
			ID:        next.ID,
			IsActive:  boolPointer(false),
			Order:     int64Pointer(next.Order),
			UpdatedAt: now,
		}},
	}, nil
}

// MoveUp moves an ON slide one position towards the front of its partition.
// Distinct orders are swapped; on a tie the moving slide takes prev.order-1.
func (b *Board) MoveUp(id string, now time.Time) (Mutation, error) {
	sequence, index, err := b.activeSequence(id)
	if err != nil {
		return Mutation{}, err
	}
	if index == 0 {
		return Mutation{Action: ActionMoveUp}, nil
	}

	current := sequence[index]
	previous := sequence[index-1]
	currentOrder, previousOrder := previous.Order, current.Order
	if current.Order == previous.Order {
		currentOrder = previous.Order - 1
		previousOrder = previous.Order
	}

	return b.applyPair(ActionMoveUp, current, currentOrder, previous, previousOrder, now), nil
}

// MoveDown moves an ON slide one position towards the back of its partition.
// Distinct orders are swapped. On a tie the slide after next is consulted:
// when its order is exactly next.order+1 the moving slide borrows that
// order, otherwise it takes next.order+1.
func (b *Board) MoveDown(id string, now time.Time) (Mutation, error) {
	sequence, index, err := b.activeSequence(id)
	if err != nil {
		return Mutation{}, err
	}
	if index == len(sequence)-1 {
		return Mutation{Action: ActionMoveDown}, nil
	}

	current := sequence[index]
	following := sequence[index+1]
	currentOrder, followingOrder := following.Order, current.Order
	if current.Order == following.Order {
		currentOrder = following.Order + 1
		followingOrder = following.Order
		if index+2 < len(sequence) {
			after := sequence[index+2]
			if after.Order == following.Order+1 {
				currentOrder = after.Order
			}
		}
	}

	return b.applyPair(ActionMoveDown, current, currentOrder, following, followingOrder, now), nil
}

// Add appends a slide; an existing slide with the same id is replaced.
func (b *Board) Add(slide Slide) {
	if _, ok := b.Find(slide.ID); ok {
		b.replace(slide)
		return
	}
	b.slides = append(b.slides, slide)
}

// Remove drops a slide from the board.
func (b *Board) Remove(id string) bool {
	for index, slide := range b.slides {
		if slide.ID == id {
			b.slides = append(b.slides[:index], b.slides[index+1:]...)
			return true
		}
	}
	return false
}

func (b *Board) activeSequence(id string) ([]Slide, int, error) {
	current, ok := b.Find(id)
	if !ok {
		return nil, 0, fmt.Errorf("%w: %s", ErrSlideNotFound, id)
	}
	if !current.IsActive {
		return nil, 0, fmt.Errorf("%w: %s", ErrSlideNotActive, id)
	}
	sequence := b.Partition(current.Type, true)
	for index, slide := range sequence {
		if slide.ID == id {
			return sequence, index, nil
		}
	}
	return nil, 0, fmt.Errorf("%w: %s", ErrSlideNotFound, id)
}

func (b *Board) applyPair(action Action, moving Slide, movingOrder int64, other Slide, otherOrder int64, now time.Time) Mutation {
	movedSlide := ActiveSlide{slide: moving}.WithOrder(movingOrder, now).Slide()
	otherSlide := ActiveSlide{slide: other}.WithOrder(otherOrder, now).Slide()
	b.replace(movedSlide)
	b.replace(otherSlide)

	return Mutation{
		Action: action,
		Changes: []SlideChange{
			{ID: movedSlide.ID, Order: int64Pointer(movingOrder), UpdatedAt: now},
			{ID: otherSlide.ID, Order: int64Pointer(otherOrder), UpdatedAt: now},
		},
	}
}

func (b *Board) replace(next Slide) {
	for index := range b.slides {
		if b.slides[index].ID == next.ID {
			b.slides[index] = next
			return
		}
	}
}

// SortByPosition sorts slides by (order, id) ascending.
func SortByPosition(slides []Slide) {
	slices.SortStableFunc(slides, func(a, b Slide) int {
		if byOrder := cmp.Compare(a.Order, b.Order); byOrder != 0 {
			return byOrder
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
