// Command-line chat loop against the Krishi Dev conversation manager,
// bypassing the HTTP layer. Useful for poking at prompts locally.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"krishidev/krishidev/chat"
	"krishidev/krishidev/config"
	"krishidev/krishidev/services/llm"
	"krishidev/krishidev/utils/logging"

	"github.com/google/uuid"
)

func main() {
	logging.InitLogger()
	cfg := config.LoadConfig()

	filter, err := chat.NewFilter()
	if err != nil {
		fmt.Println("filter rules error:", err)
		os.Exit(1)
	}
	store := chat.NewStore(cfg.SessionMaxTurns, cfg.SessionMaxUsers)
	gemini := llm.NewGeminiClient(cfg.GeminiBaseURL, cfg.GeminiAPIKey, cfg.GeminiModel)
	manager := chat.NewManager(store, filter, gemini, cfg.GeminiTimeout)

	userKey := "cli-" + uuid.New().String()
	fmt.Println("Krishi Dev CLI. Ask an agriculture question (or 'exit').")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if question == "exit" || question == "quit" {
			break
		}
		answer, _ := manager.AnswerText(context.Background(), userKey, question)
		fmt.Println(answer)
	}
}
