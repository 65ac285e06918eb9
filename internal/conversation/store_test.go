package conversation

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/lingualverse/domain/entities"
)

func TestNewStoreSeedsWelcome(t *testing.T) {
	store := NewStore(zaptest.NewLogger(t))

	msgs := store.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, entities.WelcomeText, msgs[0].Text)
	assert.Equal(t, entities.SenderBot, msgs[0].Sender)
	assert.False(t, msgs[0].HasAudio())
	assert.NoError(t, msgs[0].Validate())
}

func TestStoreAppendOrder(t *testing.T) {
	store := NewStore(zaptest.NewLogger(t))

	user := store.AppendUserMessage("hello")
	bot := store.AppendBotMessage("hi there", "http://localhost:5001/static/audio/x.mp3")

	msgs := store.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, user, msgs[1])
	assert.Equal(t, bot, msgs[2])
	assert.Equal(t, entities.SenderUser, msgs[1].Sender)
	assert.True(t, msgs[2].HasAudio())
	assert.False(t, msgs[2].Timestamp.Before(msgs[1].Timestamp))
}

func TestStoreMessagesReturnsCopy(t *testing.T) {
	store := NewStore(zaptest.NewLogger(t))

	msgs := store.Messages()
	msgs[0].Text = "mutated"

	assert.Equal(t, entities.WelcomeText, store.Messages()[0].Text)
}

func TestStoreUniqueIDsUnderRapidAppends(t *testing.T) {
	store := NewStore(zaptest.NewLogger(t))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				store.AppendUserMessage("spam")
			}
		}()
	}
	wg.Wait()

	seen := make(map[string]bool)
	for _, msg := range store.Messages() {
		assert.False(t, seen[msg.ID], "duplicate id %s", msg.ID)
		seen[msg.ID] = true
	}
	assert.Len(t, seen, 501)
}

func TestStoreReset(t *testing.T) {
	store := NewStore(zaptest.NewLogger(t))
	store.AppendUserMessage("one")
	store.AppendBotMessage("two", "")
	firstWelcome := store.Messages()[0]

	store.Reset()

	msgs := store.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, entities.WelcomeText, msgs[0].Text)
	assert.NotEqual(t, firstWelcome.ID, msgs[0].ID)
}

func TestStoreSubscribe(t *testing.T) {
	store := NewStore(zaptest.NewLogger(t))

	var events []Event
	unsubscribe := store.Subscribe(func(e Event) {
		events = append(events, e)
	})

	store.AppendUserMessage("hello")
	store.Reset()
	unsubscribe()
	store.AppendBotMessage("ignored", "")

	require.Len(t, events, 2)
	assert.Equal(t, EventMessageAppended, events[0].Type)
	assert.Equal(t, "hello", events[0].Message.Text)
	assert.Equal(t, EventReset, events[1].Type)
	require.Len(t, events[1].Messages, 1)
	assert.Equal(t, entities.WelcomeText, events[1].Messages[0].Text)
}

func TestStoreSubscriberMayReadMessages(t *testing.T) {
	store := NewStore(zaptest.NewLogger(t))

	var lengths []int
	store.Subscribe(func(e Event) {
		lengths = append(lengths, store.Len())
	})

	store.AppendUserMessage("a")
	store.AppendBotMessage("b", "")

	assert.Equal(t, []int{2, 3}, lengths)
}
