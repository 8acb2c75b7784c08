package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/gotd/td/tg"
	"github.com/joho/godotenv"

	"github.com/tgwatch/relay/internal/config"
	"github.com/tgwatch/relay/internal/relay"
	"github.com/tgwatch/relay/internal/telegram"
)

// Lists the topics of a forum supergroup so their ids can be used as topic
// values in the source rules file.
func main() {
	if len(os.Args) < 2 {
		fmt.Println("usage: tg-topics <@username | chat id>")
		fmt.Println("example: tg-topics @my_destination_group")
		os.Exit(1)
	}

	identifier := os.Args[1]
	ctx := context.Background()

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("error: %v\n", err)
		os.Exit(1)
	}

	manager := telegram.NewManager(cfg)
	if err := manager.Start(); err != nil {
		fmt.Printf("error starting client: %v\n", err)
		os.Exit(1)
	}
	defer manager.Stop()

	client := telegram.NewClient(manager, relay.NewCache())

	chat, err := client.ResolvePeer(ctx, identifier)
	if err != nil {
		fmt.Printf("error resolving %s: %v\n", identifier, err)
		os.Exit(1)
	}
	if chat.Kind != relay.PeerChannel {
		fmt.Printf("%s is not a supergroup\n", identifier)
		os.Exit(1)
	}
	if !chat.Forum {
		fmt.Printf("%s has no topics enabled\n", identifier)
		fmt.Println("this tool only works with forum-type supergroups")
		os.Exit(0)
	}

	fmt.Printf("fetching topics for %s...\n\n", identifier)

	result, err := manager.Client().API().MessagesGetForumTopics(ctx, &tg.MessagesGetForumTopicsRequest{
		Peer: &tg.InputPeerChannel{
			ChannelID:  chat.ID,
			AccessHash: chat.AccessHash,
		},
		Limit: 100,
	})
	if err != nil {
		fmt.Printf("error fetching topics: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("forum: %s\n", chat.Title)
	fmt.Printf("total topics: %d\n\n", len(result.Topics))

	fmt.Printf("%-8s | %-30s | %-10s\n", "id", "title", "status")
	fmt.Println(strings.Repeat("-", 54))

	for _, t := range result.Topics {
		topic, ok := t.(*tg.ForumTopic)
		if !ok {
			continue
		}

		status := "open"
		if topic.Closed {
			status = "closed"
		}

		title := topic.Title
		if len(title) > 30 {
			title = title[:27] + "..."
		}

		fmt.Printf("%-8d | %-30s | %-10s\n", topic.ID, title, status)
	}

	fmt.Println("\nuse these ids as topic values in sources.yaml:")
	fmt.Println(`  topic: 15`)
}
