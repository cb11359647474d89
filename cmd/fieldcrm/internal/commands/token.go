package commands

import (
	"fmt"
	"time"

	"github.com/ascendhq/fieldcrm/internal/auth"
	"github.com/ascendhq/fieldcrm/internal/token"
)

type TokenCmd struct {
	Issue  TokenIssueCmd  `cmd:"" help:"Issue a signed token"`
	Verify TokenVerifyCmd `cmd:"" help:"Verify a token and print the user id it names"`
}

type TokenIssueCmd struct {
	UserID         int64         `help:"user id the token names" required:""`
	TTL            time.Duration `help:"token lifetime" default:"168h"`
	OrganizationID int64         `help:"advisory organization hint"`
	LocationID     int64         `help:"advisory location hint"`
	Role           string        `help:"advisory role hint"`
	SigningSecret  string        `help:"token signing secret" required:"" env:"FIELDCRM_SIGNING_SECRET"`
}

func (t *TokenIssueCmd) Run(_ *Globals) error {
	codec, err := token.NewCodec([]byte(t.SigningSecret))
	if err != nil {
		return err
	}

	var hints *token.TenantHints
	if t.OrganizationID != 0 || t.LocationID != 0 || t.Role != "" {
		hints = &token.TenantHints{
			OrganizationID: t.OrganizationID,
			LocationID:     t.LocationID,
			Role:           t.Role,
		}
	}

	tok, err := token.NewIssuer(codec, 0).Issue(t.UserID, t.TTL, hints)
	if err != nil {
		return err
	}

	fmt.Println(tok)
	return nil
}

type TokenVerifyCmd struct {
	Token           string `help:"token to verify" required:"" arg:""`
	SigningSecret   string `help:"token signing secret" required:"" env:"FIELDCRM_SIGNING_SECRET"`
	SecondarySecret string `help:"previous signing secret accepted during rotation" env:"FIELDCRM_SECONDARY_SECRET"`
}

func (t *TokenVerifyCmd) Run(_ *Globals) error {
	var opts []auth.VerifierOption
	if t.SecondarySecret != "" {
		opts = append(opts, auth.WithSecondarySecret([]byte(t.SecondarySecret)))
	}

	verifier, err := auth.NewVerifier([]byte(t.SigningSecret), opts...)
	if err != nil {
		return err
	}

	userID, err := verifier.Verify(t.Token)
	if err != nil {
		return err
	}

	fmt.Printf("user_id=%d\n", userID)
	return nil
}
