package slides

import (
	"errors"
	"testing"
	"time"
)

func activeSlide(id string, order int64) Slide {
	return Slide{ID: id, Type: SlideTypeMain, IsActive: true, Order: order}
}

func inactiveSlide(id string, order int64) Slide {
	return Slide{ID: id, Type: SlideTypeMain, IsActive: false, Order: order}
}

func positions(slides []Slide) []string {
	ids := make([]string, 0, len(slides))
	for _, slide := range slides {
		ids = append(ids, slide.ID)
	}
	return ids
}

func assertSequence(t *testing.T, board *Board, want ...string) {
	t.Helper()
	got := positions(board.Partition(SlideTypeMain, true))
	if len(got) != len(want) {
		t.Fatalf("sequence length mismatch: want %v got %v", want, got)
	}
	for index := range want {
		if got[index] != want[index] {
			t.Fatalf("sequence mismatch: want %v got %v", want, got)
		}
	}
}

func mustFind(t *testing.T, board *Board, id string) Slide {
	t.Helper()
	slide, ok := board.Find(id)
	if !ok {
		t.Fatalf("slide %s not on board", id)
	}
	return slide
}

func TestMoveUpSwapsDistinctOrders(t *testing.T) {
	board := NewBoard([]Slide{activeSlide("A", 1), activeSlide("B", 2), activeSlide("C", 3)})

	mutation, err := board.MoveUp("C", testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if mustFind(t, board, "C").Order != 2 || mustFind(t, board, "B").Order != 3 {
		t.Fatalf("expected C=2 and B=3")
	}
	assertSequence(t, board, "A", "C", "B")
	if len(mutation.Changes) != 2 {
		t.Fatalf("expected two writes, got %d", len(mutation.Changes))
	}
	for _, change := range mutation.Changes {
		if !change.UpdatedAt.Equal(testNow) || change.Order == nil || change.IsActive != nil {
			t.Fatalf("unexpected change %#v", change)
		}
	}
}

func TestMoveUpBreaksTie(t *testing.T) {
	board := NewBoard([]Slide{activeSlide("A", 5), activeSlide("B", 5)})

	if _, err := board.MoveUp("B", testNow); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if mustFind(t, board, "B").Order != 4 {
		t.Fatalf("expected B to take order 4")
	}
	if mustFind(t, board, "A").Order != 5 {
		t.Fatalf("expected A to keep order 5")
	}
	assertSequence(t, board, "B", "A")
}

func TestMoveUpThenMoveDownRestoresOrder(t *testing.T) {
	board := NewBoard([]Slide{activeSlide("A", 10), activeSlide("B", 20), activeSlide("C", 30), activeSlide("D", 40)})

	if _, err := board.MoveUp("C", testNow); err != nil {
		t.Fatalf("move up: %v", err)
	}
	assertSequence(t, board, "A", "C", "B", "D")
	if _, err := board.MoveDown("C", testNow); err != nil {
		t.Fatalf("move down: %v", err)
	}
	assertSequence(t, board, "A", "B", "C", "D")
}

func TestMoveAtBoundariesIsNoOp(t *testing.T) {
	board := NewBoard([]Slide{activeSlide("A", 1), activeSlide("B", 2)})

	up, err := board.MoveUp("A", testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !up.Empty() {
		t.Fatalf("moving the first slide up must be a no-op")
	}
	down, err := board.MoveDown("B", testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !down.Empty() {
		t.Fatalf("moving the last slide down must be a no-op")
	}
	assertSequence(t, board, "A", "B")
}

func TestMoveDownTieWithoutSuccessor(t *testing.T) {
	board := NewBoard([]Slide{activeSlide("A", 5), activeSlide("B", 5)})

	if _, err := board.MoveDown("A", testNow); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if mustFind(t, board, "A").Order != 6 || mustFind(t, board, "B").Order != 5 {
		t.Fatalf("expected A=6 and B=5")
	}
	assertSequence(t, board, "B", "A")
}

func TestMoveDownTieBorrowsSuccessorOrder(t *testing.T) {
	board := NewBoard([]Slide{activeSlide("A", 5), activeSlide("B", 5), activeSlide("C", 6)})

	if _, err := board.MoveDown("A", testNow); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if mustFind(t, board, "A").Order != 6 {
		t.Fatalf("expected A to borrow C's order 6, got %d", mustFind(t, board, "A").Order)
	}
	assertSequence(t, board, "B", "A", "C")
}

func TestMoveDownTieWithDistantSuccessor(t *testing.T) {
	board := NewBoard([]Slide{activeSlide("A", 5), activeSlide("B", 5), activeSlide("C", 9)})

	if _, err := board.MoveDown("A", testNow); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if mustFind(t, board, "A").Order != 6 {
		t.Fatalf("expected A=6, got %d", mustFind(t, board, "A").Order)
	}
	assertSequence(t, board, "B", "A", "C")
}

func TestMoveDownThreeWayTie(t *testing.T) {
	board := NewBoard([]Slide{activeSlide("A", 5), activeSlide("B", 5), activeSlide("C", 5)})

	mutation, err := board.MoveDown("A", testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mutation.Changes) != 2 {
		t.Fatalf("expected two changes, got %d", len(mutation.Changes))
	}

	if mustFind(t, board, "A").Order != 6 || mustFind(t, board, "B").Order != 5 || mustFind(t, board, "C").Order != 5 {
		t.Fatalf("expected A=6 B=5 C=5, got A=%d B=%d C=%d",
			mustFind(t, board, "A").Order, mustFind(t, board, "B").Order, mustFind(t, board, "C").Order)
	}
	assertSequence(t, board, "B", "C", "A")
}

func TestSortByPositionBreaksTiesByID(t *testing.T) {
	records := []Slide{activeSlide("C", 2), activeSlide("B", 1), activeSlide("A", 2)}

	SortByPosition(records)

	if got := positions(records); got[0] != "B" || got[1] != "A" || got[2] != "C" {
		t.Fatalf("expected [B A C], got %v", got)
	}
}

func TestMoveIgnoresOtherSlideType(t *testing.T) {
	ad := Slide{ID: "AD", Type: SlideTypeAd, IsActive: true, Order: 2}
	board := NewBoard([]Slide{activeSlide("A", 1), ad, activeSlide("B", 3)})

	if _, err := board.MoveUp("B", testNow); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertSequence(t, board, "B", "A")
	if mustFind(t, board, "AD").Order != 2 {
		t.Fatalf("ad slide must not be touched")
	}
}

func TestMoveRejectsInactiveSlide(t *testing.T) {
	board := NewBoard([]Slide{inactiveSlide("X", 1)})

	if _, err := board.MoveUp("X", testNow); !errors.Is(err, ErrSlideNotActive) {
		t.Fatalf("expected ErrSlideNotActive, got %v", err)
	}
	if _, err := board.MoveDown("missing", testNow); !errors.Is(err, ErrSlideNotFound) {
		t.Fatalf("expected ErrSlideNotFound, got %v", err)
	}
}

func TestDeactivateMovesToBackOfInactivePartition(t *testing.T) {
	board := NewBoard([]Slide{
		activeSlide("X", 2),
		inactiveSlide("P", 7),
		inactiveSlide("Q", 3),
		{ID: "AD-OFF", Type: SlideTypeAd, IsActive: false, Order: 40},
	})

	mutation, err := board.Deactivate("X", testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	slide := mustFind(t, board, "X")
	if slide.IsActive || slide.Order != 8 {
		t.Fatalf("expected X inactive with order 8, got active=%v order=%d", slide.IsActive, slide.Order)
	}
	if !slide.UpdatedAt.Equal(testNow) {
		t.Fatalf("expected updated at to be set")
	}
	if len(mutation.Changes) != 1 || *mutation.Changes[0].Order != 8 || *mutation.Changes[0].IsActive {
		t.Fatalf("unexpected mutation %#v", mutation)
	}
	if _, err := board.Deactivate("X", testNow); !errors.Is(err, ErrSlideAlreadyInactive) {
		t.Fatalf("expected ErrSlideAlreadyInactive, got %v", err)
	}
}

func TestActivateMovesToBackOfActivePartition(t *testing.T) {
	board := NewBoard([]Slide{
		activeSlide("A", 4),
		activeSlide("B", 9),
		inactiveSlide("X", 1),
		{ID: "AD-ON", Type: SlideTypeAd, IsActive: true, Order: 50},
	})

	if _, err := board.Activate("X", testNow); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	slide := mustFind(t, board, "X")
	if !slide.IsActive || slide.Order != 10 {
		t.Fatalf("expected X active with order 10, got active=%v order=%d", slide.IsActive, slide.Order)
	}
	assertSequence(t, board, "A", "B", "X")
	if _, err := board.Activate("X", testNow); !errors.Is(err, ErrSlideAlreadyActive) {
		t.Fatalf("expected ErrSlideAlreadyActive, got %v", err)
	}
}

func TestActivateIntoEmptyPartitionStartsAtOne(t *testing.T) {
	board := NewBoard([]Slide{inactiveSlide("X", 12)})

	if _, err := board.Activate("X", testNow); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mustFind(t, board, "X").Order != 1 {
		t.Fatalf("expected order 1, got %d", mustFind(t, board, "X").Order)
	}
}

func TestActivateRejectsEndedPostingPeriod(t *testing.T) {
	ended := inactiveSlide("X", 3)
	ended.PostingEnd = instantPointer(testNow.Add(-time.Second))
	ended.UpdatedAt = testNow.Add(-time.Hour)
	board := NewBoard([]Slide{ended})

	mutation, err := board.Activate("X", testNow)
	if !errors.Is(err, ErrPeriodExpired) {
		t.Fatalf("expected ErrPeriodExpired, got %v", err)
	}
	if !mutation.Empty() {
		t.Fatalf("rejected activation must not produce writes")
	}
	slide := mustFind(t, board, "X")
	if slide.IsActive || slide.Order != 3 || !slide.UpdatedAt.Equal(ended.UpdatedAt) {
		t.Fatalf("rejected activation must not mutate the slide: %#v", slide)
	}
}

func TestAddAndRemove(t *testing.T) {
	board := NewBoard(nil)
	board.Add(activeSlide("A", 1))
	board.Add(activeSlide("A", 2))
	if len(board.Slides()) != 1 || mustFind(t, board, "A").Order != 2 {
		t.Fatalf("add must replace existing slide")
	}
	if !board.Remove("A") || board.Remove("A") {
		t.Fatalf("remove must report whether the slide existed")
	}
}
