package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mbeoliero/kit/log"
	"github.com/mbeoliero/relay/internal/client"
	"github.com/mbeoliero/relay/internal/config"
	"github.com/mbeoliero/relay/internal/entity"
	"github.com/mbeoliero/relay/internal/feed"
	"github.com/mbeoliero/relay/internal/repository"
	"github.com/mbeoliero/relay/internal/session"
	"github.com/mbeoliero/relay/pkg/constant"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	ctx := context.TODO()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.CtxError(ctx, "failed to load config: %v", err)
		panic(err)
	}

	constant.InitRedisKeyPrefix(cfg.Redis.KeyPrefix)

	repos, err := repository.NewRepositories(cfg)
	if err != nil {
		log.CtxError(ctx, "failed to initialize repositories: %v", err)
		panic(err)
	}
	defer repos.Close()

	if err := repos.CheckConnection(ctx); err != nil {
		log.CtxError(ctx, "store connection check failed: %v", err)
		panic(err)
	}
	log.CtxInfo(ctx, "store connection established")

	authClient, err := session.NewAuthClient(cfg.Auth.BaseURL, cfg.Auth.Timeout)
	if err != nil {
		log.CtxError(ctx, "failed to create auth client: %v", err)
		panic(err)
	}
	sessions := session.NewManager(authClient)

	in := bufio.NewScanner(os.Stdin)
	email := prompt(in, "email: ")
	password := prompt(in, "password: ")

	sess, err := sessions.SignIn(ctx, email, password)
	if err != nil {
		fmt.Println("sign in failed:", err)
		os.Exit(1)
	}
	fmt.Printf("signed in as %s\n", sess.Email)

	feedClient := feed.NewClient(&cfg.Feed, sess.Token)

	var app *client.Client
	app = client.New(cfg, sessions,
		repos.Participant, repos.Message, repos.Conversation, repos.Profile,
		feedAdapter{feedClient}, func() {
			if app != nil {
				render(app)
			}
		})
	defer app.Close()

	// Session is already live; rebuild synchronizers for it.
	if _, err := sessions.Restore(sess.Token); err != nil {
		log.CtxError(ctx, "session restore failed: %v", err)
	}

	go commandLoop(ctx, app, sessions, in)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.CtxInfo(ctx, "shutting down")
}

// feedAdapter narrows *feed.Client to the service boundary
type feedAdapter struct {
	c *feed.Client
}

func (a feedAdapter) Subscribe(ctx context.Context, table, filter string, handler func(feed.Event)) (feed.Subscription, error) {
	return a.c.Subscribe(ctx, table, filter, handler)
}

func prompt(in *bufio.Scanner, label string) string {
	fmt.Print(label)
	if !in.Scan() {
		os.Exit(0)
	}
	return strings.TrimSpace(in.Text())
}

// render redraws the active view after any synchronizer change
func render(app *client.Client) {
	if id := app.ActiveConversationId(); id != "" {
		msgs := app.Messages()
		if len(msgs) > 0 {
			last := msgs[len(msgs)-1]
			name := last.SenderId
			if last.Sender != nil && last.Sender.DisplayName != "" {
				name = last.Sender.DisplayName
			}
			fmt.Printf("\r[%s] %s: %s\n> ", id[:8], name, last.Content)
		}
	}
}

func commandLoop(ctx context.Context, app *client.Client, sessions *session.Manager, in *bufio.Scanner) {
	printHelp()
	fmt.Print("> ")

	for in.Scan() {
		line := strings.TrimSpace(in.Text())
		fields := strings.Fields(line)
		if len(fields) == 0 {
			fmt.Print("> ")
			continue
		}

		switch fields[0] {
		case "list":
			printConversations(app)

		case "open":
			if len(fields) != 2 {
				fmt.Println("usage: open <conversation_id>")
				break
			}
			if err := app.SelectConversation(ctx, fields[1]); err != nil {
				fmt.Println("open failed:", err)
				break
			}
			printMessages(app)

		case "send":
			if len(fields) < 2 {
				fmt.Println("usage: send <text>")
				break
			}
			text := strings.TrimSpace(strings.TrimPrefix(line, "send"))
			if err := app.SendMessage(ctx, text); err != nil {
				fmt.Println("send failed:", err)
			}

		case "dm":
			if len(fields) != 2 {
				fmt.Println("usage: dm <user_id>")
				break
			}
			if err := app.StartDirectChat(ctx, fields[1]); err != nil {
				fmt.Println("dm failed:", err)
			}

		case "group":
			if len(fields) < 4 {
				fmt.Println("usage: group <name> <user_id> <user_id> [...]")
				break
			}
			if err := app.CreateGroupChat(ctx, fields[2:], fields[1]); err != nil {
				fmt.Println("group failed:", err)
			}

		case "quit":
			sessions.SignOut()
			os.Exit(0)

		default:
			printHelp()
		}
		fmt.Print("> ")
	}
}

func printHelp() {
	fmt.Println("commands: list | open <id> | send <text> | dm <user_id> | group <name> <ids...> | quit")
}

func printConversations(app *client.Client) {
	for _, v := range app.Conversations() {
		marker := " "
		if v.HasUnread {
			marker = "*"
		}
		preview := ""
		if v.LastMessage != nil {
			preview = v.LastMessage.Content
		}
		fmt.Printf("%s %s  %-24s (%d) %s\n", marker, v.Id, v.Title, v.MemberCount, preview)
	}
}

func printMessages(app *client.Client) {
	for _, m := range app.Messages() {
		name := m.SenderId
		if m.Sender != nil && m.Sender.DisplayName != "" {
			name = m.Sender.DisplayName
		}
		tag := ""
		if entity.IsTempMessageId(m.Id) {
			tag = " (sending)"
		}
		fmt.Printf("%s: %s%s\n", name, m.Content, tag)
	}
}
