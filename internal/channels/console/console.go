package console

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/reflectbot/reflectbot/internal/gateway"
)

// Channel is a stdin/stdout transport for local use. All input is attributed
// to a single fixed user id.
type Channel struct {
	UserID int64
}

func New(userID int64) *Channel {
	return &Channel{UserID: userID}
}

func (c *Channel) Name() string {
	return "console"
}

func (c *Channel) Start(ctx context.Context, ingress chan<- gateway.Message) error {
	fmt.Println("ReflectBot console (Enter to send, Ctrl+C to exit)")
	fmt.Println()

	// Reading stdin is not interruptible without closing it, so the scanner
	// runs in its own goroutine and we block on ctx.
	scanner := bufio.NewScanner(os.Stdin)

	go func() {
		for {
			fmt.Print("You: ")
			if !scanner.Scan() {
				return
			}
			text := strings.TrimSpace(scanner.Text())
			if text == "" {
				continue
			}

			ingress <- gateway.Message{
				UserID:   c.UserID,
				Username: "console",
				Content:  text,
				Channel:  c.Name(),
			}
		}
	}()

	<-ctx.Done()
	return nil
}

func (c *Channel) Send(msg gateway.Message) error {
	fmt.Printf("\r\033[K")
	fmt.Printf("Bot: %s\n\n", msg.Content)
	fmt.Print("You: ")
	return nil
}
