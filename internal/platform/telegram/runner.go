package telegram

import (
	"context"
	"sync"
)

// Serve fans updates out to workers. Updates of one chat always land on the
// same worker, so a conversation is processed in order while different chats
// run in parallel. Serve returns once updates is closed or ctx is done and
// every worker has drained its queue.
func Serve(ctx context.Context, updates <-chan Update, workers int, handle func(context.Context, Update)) {
	if workers < 1 {
		workers = 1
	}

	shards := make([]chan Update, workers)
	var wg sync.WaitGroup
	for i := range shards {
		shards[i] = make(chan Update, 16)
		wg.Add(1)
		go func(in <-chan Update) {
			defer wg.Done()
			for upd := range in {
				handle(ctx, upd)
			}
		}(shards[i])
	}

	defer func() {
		for _, ch := range shards {
			close(ch)
		}
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			ch := shards[shardOf(upd.ChatID, workers)]
			select {
			case ch <- upd:
			case <-ctx.Done():
				return
			}
		}
	}
}

func shardOf(chatID int64, n int) int {
	if chatID < 0 {
		chatID = -chatID
	}
	return int(chatID % int64(n))
}
