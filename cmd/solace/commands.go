package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ashureev/solace/internal/checkup"
	"github.com/ashureev/solace/internal/conversation"
	"github.com/ashureev/solace/internal/domain"
	"github.com/ashureev/solace/internal/onboarding"
	"github.com/ashureev/solace/internal/transcript"
)

func cmdOnboard(a *app, args []string) int {
	fs := flag.NewFlagSet("onboard", flag.ContinueOnError)
	name := fs.String("name", "", "your name")
	age := fs.String("age", "", "your age")
	gender := fs.String("gender", "", "one of "+strings.Join(onboarding.Genders, ", "))
	country := fs.String("country", "", "your country")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	ctx := context.Background()
	if existing, err := onboarding.Load(ctx, a.repo); err == nil {
		fmt.Printf("Already onboarded as %s.\n", existing.Name)
		return 0
	}

	reader := bufio.NewReader(os.Stdin)
	var err error
	if *name == "" {
		if *name, err = prompt(reader, "Your name"); err != nil {
			return fail(err)
		}
	}
	if *age == "" {
		if *age, err = prompt(reader, "Your age"); err != nil {
			return fail(err)
		}
	}
	if *country == "" {
		if *country, err = prompt(reader, "Your country"); err != nil {
			return fail(err)
		}
	}
	if *gender == "" {
		if *gender, err = promptChoice(reader, "Your gender", onboarding.Genders); err != nil {
			return fail(err)
		}
	}

	years, err := onboarding.ParseAge(*age)
	if err != nil {
		return fail(err)
	}
	profile, err := onboarding.Complete(ctx, a.repo, domain.UserProfile{
		Name:    *name,
		Age:     years,
		Gender:  *gender,
		Country: *country,
	})
	if err != nil {
		return fail(err)
	}

	a.logger.Info("Onboarding complete", "country", profile.Country)
	fmt.Printf("Welcome, %s. Run `solace chat` to start talking.\n", profile.Name)
	return 0
}

func cmdChat(a *app, args []string) int {
	fs := flag.NewFlagSet("chat", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	trail, err := transcript.New(transcript.Config{
		Enabled:   a.cfg.TranscriptLog.Enabled,
		Dir:       a.cfg.TranscriptLog.Dir,
		QueueSize: a.cfg.TranscriptLog.QueueSize,
	}, a.logger)
	if err != nil {
		return fail(fmt.Errorf("initialize transcript logger: %w", err))
	}
	defer func() {
		if closeErr := trail.Close(); closeErr != nil {
			a.logger.Warn("Failed to close transcript logger", "error", closeErr)
		}
	}()

	gen := a.generator(ctx)
	sched := checkup.NewScheduler(a.repo, a.cfg.DaysToCheckup, a.logger)
	engine := checkup.NewEngine(gen, a.repo, sched, a.metrics, a.logger)
	orch, err := conversation.New(conversation.Deps{
		Store:      a.repo,
		Generator:  gen,
		Engine:     engine,
		Scheduler:  sched,
		Metrics:    a.metrics,
		Transcript: trail,
		Logger:     a.logger,
	})
	if err != nil {
		return fail(err)
	}
	defer orch.Close()

	started, err := orch.Start(ctx)
	if err != nil {
		return fail(err)
	}
	printMessages(os.Stdout, started)
	fmt.Println("(type /quit to leave, /clear to forget the conversation)")

	lines := readLines(ctx, os.Stdin)
	for {
		fmt.Print("> ")
		var line string
		var ok bool
		select {
		case <-ctx.Done():
			fmt.Println()
			return 0
		case line, ok = <-lines:
			if !ok {
				fmt.Println()
				return 0
			}
		}

		switch strings.TrimSpace(line) {
		case "/quit", "/exit":
			return 0
		case "/clear":
			deleted, err := orch.ClearHistory(ctx)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Could not clear history: %v\n", err)
				continue
			}
			fmt.Printf("Cleared %d messages.\n", deleted)
			continue
		}

		turn, err := orch.HandleUserInput(ctx, line)
		switch {
		case errors.Is(err, conversation.ErrEmptyInput):
			continue
		case err != nil:
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}
		// The first message echoes the user's own input.
		if len(turn.Messages) > 0 && turn.Messages[0].Sender == domain.SenderUser {
			printMessages(os.Stdout, turn.Messages[1:])
		} else {
			printMessages(os.Stdout, turn.Messages)
		}
	}
}

func cmdHistory(a *app, args []string) int {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	limit := fs.Int("n", 0, "show only the last n messages")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	messages, err := a.repo.ListMessages(context.Background())
	if err != nil {
		return fail(err)
	}
	if *limit > 0 && len(messages) > *limit {
		messages = messages[len(messages)-*limit:]
	}
	if len(messages) == 0 {
		fmt.Println("No saved conversation.")
		return 0
	}
	for _, m := range messages {
		fmt.Printf("[%s] %s: %s\n", m.CreatedAt.Local().Format("2006-01-02 15:04"), m.Sender.Role(), m.Text)
	}
	return 0
}

func cmdClear(a *app, args []string) int {
	fs := flag.NewFlagSet("clear", flag.ContinueOnError)
	yes := fs.Bool("y", false, "do not ask for confirmation")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if !*yes {
		answer, err := promptChoice(bufio.NewReader(os.Stdin), "Delete the saved conversation?", []string{"y", "n"})
		if err != nil {
			return fail(err)
		}
		if answer != "y" {
			return 0
		}
	}

	ctx := context.Background()
	deleted, err := a.repo.ClearHistory(ctx)
	if err != nil {
		return fail(err)
	}
	a.logger.Info("History cleared", "deleted", deleted)
	fmt.Printf("Cleared %d messages.\n", deleted)
	return 0
}

func cmdCheckups(a *app, args []string) int {
	fs := flag.NewFlagSet("checkups", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	ctx := context.Background()
	records, err := a.repo.ListCheckups(ctx)
	if err != nil {
		return fail(err)
	}
	if len(records) == 0 {
		fmt.Println("No checkups completed yet.")
	}
	for _, r := range records {
		fmt.Printf("%s  PHQ-9 %2d/27  GAD-7 %2d/21\n", r.CompletedAt.Local().Format("2006-01-02"), r.PHQScore, r.GADScore)
	}

	sched := checkup.NewScheduler(a.repo, a.cfg.DaysToCheckup, a.logger)
	last := sched.LastCheckup(ctx)
	switch {
	case last == nil || sched.Due(ctx):
		fmt.Println("Next checkup: at the start of your next chat.")
	default:
		next := last.Add(time.Duration(sched.IntervalDays()) * 24 * time.Hour)
		fmt.Printf("Next checkup: on or after %s.\n", next.Local().Format("2006-01-02"))
	}
	return 0
}

func printMessages(w io.Writer, messages []domain.Message) {
	for _, m := range messages {
		switch m.Sender {
		case domain.SenderSystem:
			fmt.Fprintf(w, "[!] %s\n", m.Text)
		case domain.SenderUser:
			fmt.Fprintf(w, "you: %s\n", m.Text)
		default:
			fmt.Fprintf(w, "solace: %s\n", m.Text)
		}
	}
}

// readLines streams stdin lines until EOF or ctx is done.
func readLines(ctx context.Context, r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}

func prompt(reader *bufio.Reader, question string) (string, error) {
	fmt.Printf("%s: ", question)
	line, err := reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// promptChoice asks until the answer is one of choices.
func promptChoice(reader *bufio.Reader, question string, choices []string) (string, error) {
	allowed := make(map[string]struct{}, len(choices))
	for _, c := range choices {
		allowed[strings.ToLower(strings.TrimSpace(c))] = struct{}{}
	}

	for {
		fmt.Printf("%s (%s): ", question, strings.Join(choices, "/"))
		line, err := reader.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return "", fmt.Errorf("read: %w", err)
		}
		s := strings.ToLower(strings.TrimSpace(line))
		if _, ok := allowed[s]; ok {
			return s, nil
		}
		if err != nil {
			return "", fmt.Errorf("read: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Please choose one of: %s\n", strings.Join(choices, ", "))
	}
}

func fail(err error) int {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return 1
}
