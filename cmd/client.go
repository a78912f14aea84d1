package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/samber/lo"
	"golang.org/x/term"

	"github.com/studyhall/chat-gateway/internal/chatclient"
	"github.com/studyhall/chat-gateway/internal/store"
)

// clientFlags are the options shared by client commands plus the few
// command-specific switches.
type clientFlags struct {
	gatewayURL string
	statePath  string
	sessionID  string
	simple     bool
	args       []string
}

func parseClientFlags(args []string) (clientFlags, error) {
	f := clientFlags{
		gatewayURL: os.Getenv("STUDYHALL_GATEWAY_URL"),
	}
	if f.gatewayURL == "" {
		f.gatewayURL = chatclient.DefaultGatewayURL
	}
	if dir := configDir(); dir != "" {
		f.statePath = filepath.Join(dir, "client.db")
	}

	value := func(i int, name string) (string, error) {
		if i+1 >= len(args) {
			return "", fmt.Errorf("%s requires a value", name)
		}
		return args[i+1], nil
	}

	for i := 0; i < len(args); i++ {
		var err error
		switch a := args[i]; a {
		case "--gateway":
			f.gatewayURL, err = value(i, a)
			i++
		case "--state":
			f.statePath, err = value(i, a)
			i++
		case "-s", "--session":
			f.sessionID, err = value(i, a)
			i++
		case "--simple":
			f.simple = true
		case "--":
			f.args = append(f.args, args[i+1:]...)
			i = len(args)
		default:
			if strings.HasPrefix(a, "--") {
				return f, fmt.Errorf("unknown option %q", a)
			}
			f.args = append(f.args, a)
		}
		if err != nil {
			return f, err
		}
	}
	if f.statePath == "" {
		return f, errors.New("cannot determine state path; pass --state")
	}
	return f, nil
}

// clientEnv is everything a client command needs.
type clientEnv struct {
	store  *store.SQLiteStore
	auth   *chatclient.AuthContext
	client *chatclient.Client
}

func openClientEnv(ctx context.Context, f clientFlags) (*clientEnv, error) {
	st, err := store.OpenSQLite(ctx, f.statePath)
	if err != nil {
		return nil, err
	}
	auth := chatclient.NewAuthContext(st)
	if err := auth.Hydrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return &clientEnv{
		store:  st,
		auth:   auth,
		client: chatclient.NewClient(f.gatewayURL, chatclient.WithAuth(auth)),
	}, nil
}

// runClientCommand runs one client command and returns the exit code.
func runClientCommand(cmd string, args []string) int {
	f, err := parseClientFlags(args)
	if err != nil {
		printError(err.Error())
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	env, err := openClientEnv(ctx, f)
	if err != nil {
		printError(err.Error())
		return 1
	}
	defer env.store.Close()

	handlers := map[string]func(context.Context, *clientEnv, clientFlags) error{
		"register": func(ctx context.Context, e *clientEnv, f clientFlags) error { return cmdSignIn(ctx, e, f, true) },
		"login":    func(ctx context.Context, e *clientEnv, f clientFlags) error { return cmdSignIn(ctx, e, f, false) },
		"logout":   cmdLogout,
		"whoami":   cmdWhoami,
		"sessions": cmdSessions,
		"history":  cmdHistory,
		"send":     cmdSend,
		"rename":   cmdRename,
		"delete":   cmdDelete,
		"upload":   cmdUpload,
	}

	if err := handlers[cmd](ctx, env, f); err != nil {
		printError(err.Error())
		if chatclient.StatusOf(err) == 401 {
			printInfo("Sign in with: studyhall login USERNAME")
		}
		return 1
	}
	return 0
}

func requireArgs(f clientFlags, n int, usage string) error {
	if len(f.args) < n {
		return fmt.Errorf("usage: studyhall %s", usage)
	}
	return nil
}

// =============================================================================
// AUTH COMMANDS
// =============================================================================

func cmdSignIn(ctx context.Context, e *clientEnv, f clientFlags, register bool) error {
	usage := "login USERNAME"
	if register {
		usage = "register USERNAME"
	}
	if err := requireArgs(f, 1, usage); err != nil {
		return err
	}
	password, err := readPassword("Password: ")
	if err != nil {
		return err
	}
	user, err := e.client.SignIn(ctx, f.args[0], password, register)
	if err != nil {
		return err
	}
	msg := "Signed in as " + user.Username
	if user.IsAdmin {
		msg += " (admin)"
	}
	printSuccess(msg)
	return nil
}

// readPassword prompts without echo on a terminal, or reads one line from
// piped stdin.
func readPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, prompt)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func cmdLogout(ctx context.Context, e *clientEnv, _ clientFlags) error {
	if !e.auth.IsAuthenticated() {
		printInfo("Not signed in")
		return nil
	}
	if err := e.client.Logout(ctx); err != nil {
		printWarn("Backend logout failed: " + err.Error())
	}
	printSuccess("Signed out")
	return nil
}

func cmdWhoami(ctx context.Context, e *clientEnv, _ clientFlags) error {
	if !e.auth.IsAuthenticated() {
		printInfo("Not signed in")
		return nil
	}
	me, err := e.client.Me(ctx)
	if err != nil {
		return err
	}
	role := "student"
	if me.IsAdmin {
		role = "admin"
	}
	fmt.Printf("%s %s\n", me.Username, dim("("+role+", id "+me.ID.String()+")"))
	return nil
}

// =============================================================================
// CHAT COMMANDS
// =============================================================================

func cmdSessions(ctx context.Context, e *clientEnv, _ clientFlags) error {
	userID := ""
	if id := e.auth.UserID(); id != nil {
		userID = *id
	}
	sessions, err := e.client.ListSessions(ctx, userID)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		printInfo("No chat sessions yet")
		return nil
	}
	for _, line := range formatSessions(sessions) {
		fmt.Println(line)
	}
	return nil
}

func formatSessions(sessions []chatclient.ChatSession) []string {
	width := lo.Max(lo.Map(sessions, func(s chatclient.ChatSession, _ int) int { return len(s.ID) }))
	return lo.Map(sessions, func(s chatclient.ChatSession, _ int) string {
		updated := ""
		if !s.UpdatedAt.IsZero() {
			updated = dim(s.UpdatedAt.Local().Format("2006-01-02 15:04"))
		}
		return fmt.Sprintf("%-*s  %s  %s", width, s.ID, s.Title, updated)
	})
}

func cmdHistory(ctx context.Context, e *clientEnv, f clientFlags) error {
	if err := requireArgs(f, 1, "history SESSION_ID"); err != nil {
		return err
	}
	msgs, err := e.client.ListMessages(ctx, chatclient.ID(f.args[0]))
	if err != nil {
		return err
	}
	printMessages(msgs)
	return nil
}

func printMessages(msgs []chatclient.Message) {
	for _, m := range msgs {
		who := userColor("you")
		if m.Role == chatclient.RoleAssistant {
			who = botColor("tutor")
		}
		fmt.Printf("%s: %s\n", who, m.Content)
	}
}

func cmdSend(ctx context.Context, e *clientEnv, f clientFlags) error {
	if err := requireArgs(f, 1, "send [-s SESSION_ID] TEXT..."); err != nil {
		return err
	}

	cache := chatclient.NewQueryCache(0)
	notifier := chatclient.NotifierFunc(func(t chatclient.Toast) {
		printError(t.Description)
	})
	s := chatclient.NewSynchronizer(e.client, cache,
		chatclient.WithAuthContext(e.auth),
		chatclient.WithNotifier(notifier))
	defer s.Close()

	if f.sessionID != "" {
		s.SelectSession(chatclient.ChatSession{ID: chatclient.ID(f.sessionID)})
	}
	if err := s.SetComposer(strings.Join(f.args, " ")); err != nil {
		return err
	}

	msg, err := s.Send(ctx)
	if err != nil {
		return err
	}
	if f.sessionID == "" {
		printInfo(fmt.Sprintf("Started session %s", msg.SessionID))
	}

	// Wait for the delayed re-fetch so the reply is included.
	refreshed := make(chan struct{}, 1)
	unsubscribe := cache.Subscribe(func(key string) {
		if key == chatclient.MessagesKey(msg.SessionID) {
			select {
			case refreshed <- struct{}{}:
			default:
			}
		}
	})
	defer unsubscribe()
	if s.PendingRefreshes() > 0 {
		select {
		case <-refreshed:
		case <-time.After(chatclient.DefaultRefreshDelay + 5*time.Second):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	msgs, err := s.Messages(ctx, msg.SessionID)
	if err != nil {
		return err
	}
	printMessages(msgs)
	return nil
}

func cmdRename(ctx context.Context, e *clientEnv, f clientFlags) error {
	if err := requireArgs(f, 2, "rename SESSION_ID TITLE..."); err != nil {
		return err
	}
	sess, err := e.client.RenameSession(ctx, chatclient.ID(f.args[0]), strings.Join(f.args[1:], " "))
	if err != nil {
		return err
	}
	printSuccess(fmt.Sprintf("Renamed %s to %q", sess.ID, sess.Title))
	return nil
}

func cmdDelete(ctx context.Context, e *clientEnv, f clientFlags) error {
	if err := requireArgs(f, 1, "delete SESSION_ID"); err != nil {
		return err
	}
	if err := e.client.DeleteSession(ctx, chatclient.ID(f.args[0])); err != nil {
		return err
	}
	printSuccess("Deleted " + f.args[0])
	return nil
}

// =============================================================================
// UPLOAD
// =============================================================================

func cmdUpload(ctx context.Context, e *clientEnv, f clientFlags) error {
	if err := requireArgs(f, 1, "upload [--simple] FILE"); err != nil {
		return err
	}
	if !e.auth.IsAdmin() {
		printWarn("Uploads need an admin account; the backend will decide")
	}

	form := chatclient.NewUploadForm(e.client, f.simple)
	if err := form.Select(f.args[0]); err != nil {
		return err
	}
	res, err := form.Submit(ctx)
	if err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("upload not accepted: %s", res.Message)
	}
	msg := fmt.Sprintf("Uploaded %s", filepath.Base(f.args[0]))
	if res.Chunks > 0 {
		msg += fmt.Sprintf(" (%d chunks)", res.Chunks)
	}
	printSuccess(msg)
	if res.Message != "" {
		printInfo(res.Message)
	}
	return nil
}
