package auth

import (
	"errors"
	"strconv"
	"strings"
)

const DefaultDemoPrefix = "demo_"

var (
	ErrAuthRequired  = errors.New("authentication required")
	ErrNotConfigured = errors.New("telegram bot token is not configured")
)

type Tier int

const (
	// TierDemo ids are self-asserted by the client and never checked.
	TierDemo Tier = iota + 1
	TierVerified
)

func (t Tier) String() string {
	switch t {
	case TierDemo:
		return "demo"
	case TierVerified:
		return "verified"
	default:
		return "unknown"
	}
}

// Identity is a user id tagged with how much it can be trusted. The zero value
// is not a valid identity.
type Identity struct {
	id   string
	tier Tier
}

func Demo(id string) Identity {
	return Identity{id: id, tier: TierDemo}
}

func Verified(id string) Identity {
	return Identity{id: id, tier: TierVerified}
}

func (i Identity) ID() string {
	return i.id
}

func (i Identity) Tier() Tier {
	return i.tier
}

func (i Identity) IsVerified() bool {
	return i.tier == TierVerified
}

func (i Identity) IsZero() bool {
	return i.id == "" || i.tier == 0
}

func (i Identity) String() string {
	return i.tier.String() + ":" + i.id
}

// Authenticator turns a claimed user id plus optional launch data into an
// Identity. A nil verifier means the bot token is not configured.
type Authenticator struct {
	verifier   *Verifier
	demoPrefix string
}

func NewAuthenticator(verifier *Verifier, demoPrefix string) *Authenticator {
	if demoPrefix == "" {
		demoPrefix = DefaultDemoPrefix
	}
	return &Authenticator{
		verifier:   verifier,
		demoPrefix: demoPrefix,
	}
}

func (a *Authenticator) IsDemoID(id string) bool {
	return strings.HasPrefix(id, a.demoPrefix)
}

// Resolve returns a demo identity for demo ids and a verified identity for
// valid launch data. The verified id comes from the launch data, not from
// claimedID.
func (a *Authenticator) Resolve(claimedID, initData string) (Identity, *TelegramUserData, error) {
	if a.IsDemoID(claimedID) {
		return Demo(claimedID), nil, nil
	}

	data, err := a.Verify(initData)
	if err != nil {
		return Identity{}, nil, err
	}

	return Verified(strconv.FormatInt(data.ID, 10)), data, nil
}

// Verify checks launch data without a demo fallback.
func (a *Authenticator) Verify(initData string) (*TelegramUserData, error) {
	if a.verifier == nil {
		return nil, ErrNotConfigured
	}
	if initData == "" {
		return nil, ErrAuthRequired
	}
	return a.verifier.Verify(initData)
}
