package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/stemsi/interview-backend/internal/config"
	"github.com/stemsi/interview-backend/internal/logger"
	"github.com/stemsi/interview-backend/internal/service"
)

func main() {
	var (
		candidateID int
		ttl         time.Duration
	)
	flag.IntVar(&candidateID, "candidate", 0, "Candidate ID to issue the token for")
	flag.DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	flag.Parse()

	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	// ─── CLI Input ─────────────────────────────────────────────────────
	if candidateID == 0 {
		reader := bufio.NewReader(os.Stdin)
		fmt.Print("Enter Candidate ID: ")
		raw, _ := reader.ReadString('\n')
		id, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			fmt.Println("Error: Candidate ID must be a number")
			os.Exit(1)
		}
		candidateID = id
	}
	if candidateID <= 0 {
		fmt.Println("Error: Candidate ID must be positive")
		os.Exit(1)
	}

	// ─── Logic ─────────────────────────────────────────────────────────
	token, err := service.NewAuthService(cfg.JWTSecret).IssueToken(candidateID, ttl)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to sign token")
	}

	log.Info().Int("candidate_id", candidateID).Dur("ttl", ttl).Msg("Token issued")
	fmt.Println(token)
}
