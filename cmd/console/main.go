package main

import (
	"bufio"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

type ConsoleConfig struct {
	APIBaseURL string
	Timeout    time.Duration
}

func main() {
	cfg := &ConsoleConfig{
		APIBaseURL: getEnv("API_BASE_URL", "http://localhost:8080"),
		// Narrator turns wait on the model and its retries.
		Timeout: 3 * time.Minute,
	}

	client := &apiClient{
		http:    &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(cfg.APIBaseURL, "/"),
	}

	if !client.testConnection() {
		fmt.Fprintf(os.Stderr, "Could not connect to API at %s. Please ensure the API is running.\n", cfg.APIBaseURL)
		os.Exit(1)
	}

	if err := signIn(client, bufio.NewReader(os.Stdin)); err != nil {
		fmt.Fprintf(os.Stderr, "Sign in failed: %v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(NewConsoleUI(cfg, client),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}

// signIn logs in with CONSOLE_USERNAME/CONSOLE_PASSWORD or prompts for them,
// offering to register when the account does not exist.
func signIn(client *apiClient, in *bufio.Reader) error {
	username := os.Getenv("CONSOLE_USERNAME")
	password := os.Getenv("CONSOLE_PASSWORD")
	if username == "" {
		username = prompt(in, "Username: ")
	}
	if password == "" {
		password = prompt(in, "Password: ")
	}

	err := client.login(username, password)
	if !errors.Is(err, errUnauthorized) {
		return err
	}

	answer := prompt(in, "No account matched. Register "+username+"? [y/N]: ")
	if !strings.EqualFold(answer, "y") {
		return err
	}
	email := prompt(in, "Email: ")
	return client.register(username, email, password)
}

func prompt(in *bufio.Reader, label string) string {
	fmt.Print(label)
	line, _ := in.ReadString('\n')
	return strings.TrimSpace(line)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
