package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/celestix/gotgproto"
	"github.com/celestix/gotgproto/sessionMaker"
	"github.com/glebarez/sqlite"
	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram/auth/qrlogin"
	"github.com/joho/godotenv"
	"github.com/mdp/qrterminal/v3"

	"github.com/tgwatch/relay/internal/telegram"
)

func main() {
	fmt.Println("=== telegram auth tool ===")
	fmt.Println("authorizes the relay account and stores the session")
	fmt.Println()

	_ = godotenv.Load()
	reader := bufio.NewReader(os.Stdin)

	apiID, apiHash := getAPICredentials(reader)
	sessionFile := os.Getenv("TG_SESSION_FILE")
	if sessionFile == "" {
		sessionFile = "./tg_session.db"
	}

	fmt.Println("choose authentication method:")
	fmt.Println("  1. phone number (sms/code)")
	fmt.Println("  2. qr code (scan with the telegram app)")
	fmt.Print("\nenter choice [1]: ")

	choice, _ := reader.ReadString('\n')

	var err error
	if strings.TrimSpace(choice) == "2" {
		err = authWithQR(apiID, apiHash, sessionFile)
	} else {
		err = authWithPhone(apiID, apiHash, sessionFile, reader)
	}
	if err != nil {
		fmt.Printf("error: %v\n", err)
		os.Exit(1)
	}
}

// getAPICredentials reads API ID and Hash from env or prompts user
func getAPICredentials(reader *bufio.Reader) (int, string) {
	apiIDStr := os.Getenv("TG_API_ID")
	apiHash := os.Getenv("TG_API_HASH")

	if apiIDStr == "" {
		fmt.Print("enter your api_id (from https://my.telegram.org): ")
		apiIDStr, _ = reader.ReadString('\n')
		apiIDStr = strings.TrimSpace(apiIDStr)
	}
	if apiHash == "" {
		fmt.Print("enter your api_hash: ")
		apiHash, _ = reader.ReadString('\n')
		apiHash = strings.TrimSpace(apiHash)
	}

	apiID, err := strconv.Atoi(apiIDStr)
	if err != nil {
		fmt.Printf("error: invalid api_id: %v\n", err)
		os.Exit(1)
	}

	return apiID, apiHash
}

// authWithPhone authenticates using phone number (SMS/code) and prints a
// portable session string besides filling the session file.
func authWithPhone(apiID int, apiHash string, sessionFile string, reader *bufio.Reader) error {
	fmt.Print("enter your phone number (with country code, e.g. +1234567890): ")
	phone, _ := reader.ReadString('\n')
	phone = strings.TrimSpace(phone)

	fmt.Println("\nauthenticating... (check telegram for code)")

	client, err := gotgproto.NewClient(
		apiID,
		apiHash,
		gotgproto.ClientTypePhone(phone),
		&gotgproto.ClientOpts{
			Session:          sessionMaker.SqlSession(sqlite.Open(sessionFile)),
			DisableCopyright: true,
		},
	)
	if err != nil {
		return err
	}
	defer client.Stop()

	sessionString, err := client.ExportStringSession()
	if err != nil {
		return fmt.Errorf("export session: %w", err)
	}

	fmt.Println("\n✓ authentication successful!")
	fmt.Printf("logged in as: @%s\n", client.Self.Username)
	fmt.Printf("session stored in: %s\n", sessionFile)
	fmt.Println("\nportable session string (optional, for TG_SESSION_STRING):")
	fmt.Println("---")
	fmt.Println(sessionString)
	fmt.Println("---")
	fmt.Println("\n⚠️  keep this secret! it provides full access to your telegram account")
	return nil
}

// authWithQR authenticates by rendering a login QR code in the terminal and
// saves the resulting session into the session file.
func authWithQR(apiID int, apiHash string, sessionFile string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	bundle := telegram.NewQRBundle(apiID, apiHash)

	var sessionData *session.Data
	err := bundle.Client.Run(ctx, func(ctx context.Context) error {
		qr := bundle.Client.QR()
		loggedIn := qrlogin.OnLoginToken(&bundle.Dispatcher)

		_, err := qr.Auth(ctx, loggedIn, func(_ context.Context, token qrlogin.Token) error {
			fmt.Println("\nscan this with telegram (settings -> devices -> link desktop device):")
			qrterminal.GenerateHalfBlock(token.URL(), qrterminal.L, os.Stdout)
			return nil
		})
		if err != nil {
			return err
		}

		loader := session.Loader{Storage: bundle.Storage}
		sessionData, err = loader.Load(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("qr auth: %w", err)
	}

	if err := telegram.SaveSessionFile(sessionFile, sessionData); err != nil {
		return err
	}

	fmt.Println("\n✓ authentication successful!")
	fmt.Printf("session stored in: %s\n", sessionFile)
	fmt.Println("the relay will pick it up via TG_SESSION_FILE")
	return nil
}
