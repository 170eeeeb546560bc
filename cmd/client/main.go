package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/omochice/toy-room-chat/internal/client"
	"github.com/omochice/toy-room-chat/internal/config"
	"github.com/omochice/toy-room-chat/internal/logger"
	"github.com/omochice/toy-room-chat/internal/roomid"
	"github.com/omochice/toy-room-chat/internal/session"
	"github.com/omochice/toy-room-chat/pkg/protocol"
)

var version = "dev"

const usage = `Commands:
  /create      create a new room and join it
  /join ID     join an existing room
  /leave       leave the current room
  /clear       clear the room's chat for everyone
  /typing TEXT show TEXT as a draft so others see you typing
  /who         list participants
  /quit        exit
Anything else is sent as a message.`

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Parse command-line flags
	serverURL := flag.String("server", cfg.Client.ServerURL, "Server websocket URL (e.g., ws://localhost:3001/ws)")
	username := flag.String("username", "", "Username for chat")
	transport := flag.String("transport", cfg.Client.Transport, "Websocket library: nhooyr or gobwas")
	flag.Parse()

	if *username == "" {
		fmt.Fprintln(os.Stderr, "Username is required. Use -username flag")
		os.Exit(2)
	}

	logCfg := cfg.Logging.Logger("chat-client", version)
	logCfg.Output = os.Stderr
	log := logger.Init(logCfg)

	codec := cfg.ProtocolCodec()
	dial, err := client.NewDialer(*transport, *serverURL, codec.Binary())
	if err != nil {
		log.Error("invalid transport", slog.Any("error", err))
		os.Exit(2)
	}
	gen, err := roomid.NewGenerator()
	if err != nil {
		log.Error("failed to create room id generator", slog.Any("error", err))
		os.Exit(1)
	}

	s := session.New(dial, session.Options{
		Codec:           codec,
		Reconnect:       cfg.Client.ReconnectPolicy(),
		Logger:          log,
		TypingIdle:      cfg.Client.TypingIdle,
		RemoteTypingTTL: cfg.Client.RemoteTypingTTL,
		JoinTimeout:     cfg.Client.JoinTimeout,
		NewRoomID:       gen,
	})
	s.Observe(&printer{out: os.Stdout})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	if err := s.SetUsername(ctx, *username); err != nil {
		log.Error("invalid username", slog.Any("error", err))
		stop()
		<-done
		os.Exit(2)
	}

	fmt.Println(usage)
	lines := readLines(os.Stdin)
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case line, ok := <-lines:
			if !ok {
				break loop
			}
			quit, err := run(ctx, s, line)
			if err != nil {
				fmt.Printf("!!! %v\n", err)
			}
			if quit {
				break loop
			}
		}
	}

	stop()
	if err := <-done; err != nil {
		log.Error("session ended", slog.Any("error", err))
	}
}

func readLines(r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}

// run executes one input line and reports whether the client should exit.
func run(ctx context.Context, s *session.Session, line string) (bool, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}
	if !strings.HasPrefix(line, "/") {
		return false, s.Submit(ctx, line)
	}

	cmd, arg, _ := strings.Cut(line, " ")
	switch cmd {
	case "/create":
		_, err := s.CreateRoom(ctx)
		return false, err
	case "/join":
		if arg == "" {
			return false, errors.New("usage: /join ID")
		}
		_, err := s.JoinRoom(ctx, arg)
		return false, err
	case "/leave":
		return false, s.Leave(ctx)
	case "/clear":
		return false, s.ClearChat(ctx)
	case "/typing":
		// Lines arrive whole, so drafts are the only keystroke signal.
		return false, s.SetInput(ctx, arg)
	case "/who":
		v, err := s.View(ctx)
		if err != nil {
			return false, err
		}
		if v.Phase != session.Joined {
			return false, session.ErrNotJoined
		}
		fmt.Printf("*** in %s: %s ***\n", v.RoomID, strings.Join(v.Participants, ", "))
		return false, nil
	case "/quit", "/exit":
		return true, nil
	default:
		fmt.Println(usage)
		return false, nil
	}
}

// printer renders view changes as terminal lines. It runs on the session
// goroutine.
type printer struct {
	out  io.Writer
	last session.View
}

func (p *printer) HandleView(v session.View) {
	last := p.last
	p.last = v

	if v.Connection != last.Connection {
		fmt.Fprintf(p.out, "*** %s ***\n", v.Connection)
	}

	switch {
	case v.Phase == session.Joined && (last.Phase != session.Joined || v.RoomID != last.RoomID):
		fmt.Fprintf(p.out, "*** joined room %s as %s ***\n", v.RoomID, v.Username)
		fmt.Fprintf(p.out, "*** in room: %s ***\n", strings.Join(v.Participants, ", "))
		p.printMessages(v.Messages)
		return
	case v.Phase == session.Joining && last.Phase != session.Joining:
		fmt.Fprintf(p.out, "*** joining %s... ***\n", v.RoomID)
		return
	case v.Phase == session.Unjoined && last.Phase == session.Joined:
		fmt.Fprintln(p.out, "*** left the room ***")
		return
	case v.Phase != session.Joined:
		return
	}

	if !slices.Equal(v.Participants, last.Participants) {
		fmt.Fprintf(p.out, "*** in room: %s ***\n", strings.Join(v.Participants, ", "))
	}
	switch {
	case len(v.Messages) < len(last.Messages):
		fmt.Fprintln(p.out, "*** chat cleared ***")
		p.printMessages(v.Messages)
	case len(v.Messages) > len(last.Messages):
		p.printMessages(v.Messages[len(last.Messages):])
	}
	if !slices.Equal(v.Typing, last.Typing) {
		if line := typingLine(v.Typing); line != "" {
			fmt.Fprintf(p.out, "    %s\n", line)
		}
	}
}

func (p *printer) HandleError(err error) {
	fmt.Fprintf(p.out, "!!! %v\n", err)
}

func (p *printer) printMessages(messages []protocol.Message) {
	for _, m := range messages {
		fmt.Fprintf(p.out, "[%s] %s: %s\n", m.Time().Local().Format("03:04 PM"), m.Sender, m.Text)
	}
}

func typingLine(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0] + " is typing..."
	default:
		return strings.Join(names, ", ") + " are typing..."
	}
}
