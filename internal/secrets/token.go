package secrets

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

// KeyringService groups this app's secrets in the OS keychain.
const KeyringService = "competitoriq"

// TokenAccount derives the keychain account name for a caller's identity
// token. Scoped per user so switching accounts never leaks a token.
func TokenAccount(userID string) string {
	return fmt.Sprintf("competitoriq:token:%s", strings.TrimSpace(userID))
}

func GetToken(account string) (string, error) {
	if strings.TrimSpace(account) == "" {
		return "", errors.New("keyring account name is empty")
	}
	tok, err := keyring.Get(KeyringService, account)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(tok) == "" {
		return "", errors.New("identity token not found in keychain")
	}
	return tok, nil
}

func SetToken(account string, token string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	if strings.TrimSpace(token) == "" {
		return errors.New("token is empty")
	}
	return keyring.Set(KeyringService, account, token)
}

func DeleteToken(account string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	return keyring.Delete(KeyringService, account)
}
