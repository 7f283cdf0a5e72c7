package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ExploracuriousAlex/yapytr/internal/api"
	"github.com/ExploracuriousAlex/yapytr/internal/auth"
)

// Login flags shared by every command that talks to the service.
var (
	phoneNo string
	pin     string
)

func addLoginFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&phoneNo, "phone_no", "n", "", "Trade Republic phone number in the format +4912345678")
	cmd.Flags().StringVarP(&pin, "pin", "p", "", "Trade Republic PIN")
}

var (
	codePattern = regexp.MustCompile(`^[0-9]{4}$`)
	anyPattern  = regexp.MustCompile(``)
)

// promptInput reads a line from stdin, repeating the prompt until the
// input matches the pattern.
func promptInput(prompt string, pattern *regexp.Regexp, errMsg string) (string, error) {
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print(prompt)
		line, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read input: %w", err)
		}
		line = strings.TrimSpace(line)
		if pattern.MatchString(line) {
			return line, nil
		}
		fmt.Println(errMsg)
	}
}

// resolveCredentials follows the original lookup order: flags, then the
// credentials file, then interactive prompts with an offer to save.
func resolveCredentials() (auth.Credentials, error) {
	if phoneNo != "" && pin != "" {
		creds := auth.Credentials{PhoneNo: phoneNo, PIN: pin}
		return creds, creds.Validate()
	}

	if phoneNo == "" && cfg.PhoneNo != "" {
		phoneNo = cfg.PhoneNo
	}

	if phoneNo == "" {
		if creds, err := auth.LoadCredentials(settings.CredentialsPath()); err == nil {
			logger.Info("found credentials file", "phone", creds.MaskedPhoneNo())
			return creds, nil
		}
		logger.Info("credentials file not found")
	}

	var err error
	if phoneNo == "" {
		phoneNo, err = promptInput(
			"Please enter your Trade Republic phone number in the format +4912345678: ",
			regexp.MustCompile(`^\+[0-9]{10,15}$`),
			"Invalid phone number format!",
		)
		if err != nil {
			return auth.Credentials{}, err
		}
	}
	if pin == "" {
		pin, err = promptInput("Please enter your Trade Republic PIN: ", codePattern, "Invalid PIN format!")
		if err != nil {
			return auth.Credentials{}, err
		}
	}

	creds := auth.Credentials{PhoneNo: phoneNo, PIN: pin}
	if err := creds.Validate(); err != nil {
		return auth.Credentials{}, err
	}

	save, err := promptInput(`Save credentials? Type "y" to save credentials: `, anyPattern, "")
	if err != nil {
		return auth.Credentials{}, err
	}
	if strings.EqualFold(save, "y") {
		if err := auth.SaveCredentials(settings.CredentialsPath(), creds); err != nil {
			return auth.Credentials{}, err
		}
		logger.Info("saved credentials", "path", settings.CredentialsPath())
	} else {
		logger.Info("credentials not saved")
	}
	return creds, nil
}

// login resumes the persisted session when its token is still valid,
// otherwise runs the full two-factor web login.
func login(ctx context.Context) (string, error) {
	store := auth.NewSessionStore(settings.SessionPath())
	token, err := store.Load()
	if err != nil {
		return "", err
	}
	if auth.TokenValid(token, time.Now()) {
		logger.Info("web session resumed")
		return token, nil
	}

	creds, err := resolveCredentials()
	if err != nil {
		return "", err
	}

	client := auth.NewClient(logger, auth.Options{})
	process, err := client.InitiateWebLogin(ctx, creds)
	if err != nil {
		return "", err
	}
	requestTime := time.Now()

	fmt.Println("Enter the code you received to your mobile app as a notification.")
	fmt.Printf("Enter nothing if you want to receive the (same) code as SMS. (Countdown: %d)\n", process.Countdown)
	code, err := promptInput("Code: ", regexp.MustCompile(`^([0-9]{4})?$`), "Invalid code format!")
	if err != nil {
		return "", err
	}
	if code == "" {
		wait := time.Duration(process.Countdown)*time.Second - time.Since(requestTime)
		if wait > 0 {
			fmt.Printf("Waiting %d seconds before requesting SMS...\n", int(wait.Seconds()))
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
		if err := client.ResendCode(ctx, process.ProcessID); err != nil {
			return "", err
		}
		code, err = promptInput(
			"SMS requested. Enter the confirmation code: ",
			codePattern,
			"Invalid code. The Trade Republic verification code consists of 4 digits.",
		)
		if err != nil {
			return "", err
		}
	}

	token, err = client.CompleteWebLogin(ctx, process.ProcessID, code)
	if err != nil {
		return "", err
	}
	if err := store.Save(token); err != nil {
		return "", err
	}
	logger.Info("logged in")
	return token, nil
}

// dialAPI logs in and opens the websocket connection.
func dialAPI(ctx context.Context) (*api.Client, error) {
	token, err := login(ctx)
	if err != nil {
		return nil, err
	}
	return api.Dial(ctx, logger, api.Options{Token: token})
}
