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

	"github.com/joho/godotenv"

	"portfolio-agent/internal/chatclient"
	"portfolio-agent/internal/config"
	"portfolio-agent/internal/pkg/answertext"
	"portfolio-agent/internal/platform/logger"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("load config: %v\n", err)
		os.Exit(1)
	}

	var baseURL, question, page string
	var verbose bool
	flag.StringVar(&baseURL, "url", fmt.Sprintf("http://localhost:%d", cfg.App.Port), "agent server origin")
	flag.StringVar(&question, "q", "", "ask a single question and exit")
	flag.StringVar(&page, "page", "/agent", "page path recorded in the audit log")
	flag.BoolVar(&verbose, "v", false, "log failed requests")
	flag.Parse()

	logMode := "nop"
	if verbose {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := chatclient.New(chatclient.Options{
		BaseURL:   baseURL,
		PagePath:  page,
		UserAgent: "portfolio-agent-cli",
		Logger:    log,
	})
	defer client.Wait()

	if strings.TrimSpace(question) != "" {
		reply, _ := client.PrefillOnce(ctx, question)
		fmt.Println(chatclient.PlainText(reply))
		return
	}

	fmt.Println(chatclient.DefaultGreeting)
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return
		}
		text := scanner.Text()
		reply, sent := client.Send(ctx, text)
		if !sent {
			continue
		}
		fmt.Println(chatclient.PlainText(reply))
		if !answertext.IsConfident(reply) {
			if next, ok := client.Suggest(cfg.Feed.Suggestions, text); ok {
				fmt.Printf("(try asking: %s)\n", next)
			}
		}
		if ctx.Err() != nil {
			return
		}
	}
}
