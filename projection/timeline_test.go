package projection

import (
	"context"
	"livechat/domain/chat"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func message(id, text string, offset time.Duration) chat.Message {
	return chat.Message{ID: id, Text: text, Sender: chat.DefaultSender, LikedBy: []string{}, CreatedAt: t0.Add(offset)}
}

func texts(messages []chat.Message) []string {
	return lo.Map(messages, func(m chat.Message, _ int) string { return m.Text })
}

func TestTimeline_Replaces_By_Identity_And_Sorts(t *testing.T) {
	req := require.New(t)
	timeline := NewTimeline("owner")

	a := message("a", "A", 0)
	b := message("b", "B", time.Minute)
	c := message("c", "C", 2*time.Minute)
	aPrime := a
	aPrime.Text = "A'"
	aPrime.LikedBy = []string{"someone"}

	// Given the history [A, B]
	timeline.Apply(chat.Batch{Messages: []chat.Message{a, b}})

	// When [A', C] is received
	view := timeline.Apply(chat.Batch{Messages: []chat.Message{aPrime, c}})

	// Then A was fully replaced, B kept, C added, in creation order
	req.Equal([]string{"A'", "B", "C"}, texts(view))
	req.Equal(1, view[0].Likes())
	req.Equal(3, timeline.Len())
}

func TestTimeline_Single_Payload(t *testing.T) {
	req := require.New(t)
	timeline := NewTimeline("owner")

	view := timeline.Apply(chat.Single{Message: message("a", "hi", 0)})

	req.Equal([]string{"hi"}, texts(view))
}

func TestTimeline_Empty_Batch_Is_A_NoOp(t *testing.T) {
	req := require.New(t)
	timeline := NewTimeline("owner")
	timeline.Apply(chat.Single{Message: message("a", "hi", 0)})

	view := timeline.Apply(chat.Batch{})

	req.Equal([]string{"hi"}, texts(view))
}

func TestTimeline_Older_Record_Arriving_Late_Is_Inserted_In_Place(t *testing.T) {
	req := require.New(t)
	timeline := NewTimeline("owner")

	timeline.Apply(chat.Single{Message: message("b", "B", time.Minute)})
	view := timeline.Apply(chat.Single{Message: message("a", "A", 0)})

	req.Equal([]string{"A", "B"}, texts(view))
}

func TestTimeline_Ties_Keep_First_Arrival_Order(t *testing.T) {
	req := require.New(t)
	timeline := NewTimeline("owner")

	// Given two records created at the same instant
	timeline.Apply(chat.Single{Message: message("y", "Y", 0)})
	timeline.Apply(chat.Single{Message: message("x", "X", 0)})

	// When the first one is updated
	updated := message("y", "Y'", 0)
	view := timeline.Apply(chat.Single{Message: updated})

	// Then it keeps its position
	req.Equal([]string{"Y'", "X"}, texts(view))
}

func TestTimeline_Record_Without_Identity_Is_Treated_As_New(t *testing.T) {
	req := require.New(t)
	timeline := NewTimeline("owner")

	timeline.Apply(chat.Single{Message: message("", "first", 0)})
	view := timeline.Apply(chat.Single{Message: message("", "second", time.Second)})

	req.Equal([]string{"first", "second"}, texts(view))
}

func TestTimeline_Converges_Regardless_Of_Batching_And_Order(t *testing.T) {
	req := require.New(t)
	final := []chat.Message{
		message("a", "A", 0),
		message("b", "B", time.Minute),
		message("c", "C", 2*time.Minute),
		message("d", "D", 3*time.Minute),
	}

	reference := NewTimeline("owner")
	reference.Apply(chat.Batch{Messages: final})

	rng := rand.New(rand.NewPCG(1, 2))
	for run := 0; run < 20; run++ {
		shuffled := append([]chat.Message(nil), final...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		// When the same final records arrive in random chunks
		timeline := NewTimeline("owner")
		for len(shuffled) > 0 {
			n := 1 + rng.IntN(len(shuffled))
			if n == 1 {
				timeline.Apply(chat.Single{Message: shuffled[0]})
			} else {
				timeline.Apply(chat.Batch{Messages: shuffled[:n]})
			}
			shuffled = shuffled[n:]
		}

		// Then the view is identical
		req.Equal(reference.Messages(), timeline.Messages())
	}
}

func TestTimeline_LikedByOwner(t *testing.T) {
	req := require.New(t)
	timeline := NewTimeline("me")

	liked := message("a", "A", 0)
	liked.LikedBy = []string{"someone", "me"}
	timeline.Apply(chat.Batch{Messages: []chat.Message{liked, message("b", "B", time.Second)}})

	req.True(timeline.LikedByOwner("a"))
	req.False(timeline.LikedByOwner("b"))
	req.False(timeline.LikedByOwner("unknown"))
}

func TestTimeline_View_Is_Detached_From_Caller(t *testing.T) {
	req := require.New(t)
	timeline := NewTimeline("me")

	m := message("a", "A", 0)
	m.LikedBy = []string{"x"}
	req.NoError(timeline.Consume(context.Background(), chat.Single{Message: m}))

	// When the caller mutates what it sent
	m.LikedBy[0] = "tampered"

	// Then the timeline is not affected
	stored, ok := timeline.Get("a")
	req.True(ok)
	req.Equal([]string{"x"}, stored.LikedBy)
}
