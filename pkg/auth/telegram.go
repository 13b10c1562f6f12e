package auth

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"yafs_miniapp/pkg/logger"

	initdata "github.com/telegram-mini-apps/init-data-golang"
	"go.uber.org/zap"
)

const (
	DefaultMaxAge        = 300 * time.Second
	DefaultMaxFutureSkew = 60 * time.Second
)

// ErrInvalidInitData is the only error Verify returns. The concrete reason is
// logged at debug level and never handed to callers.
var ErrInvalidInitData = errors.New("invalid telegram init data")

var (
	errEmptyInput      = errors.New("init data or bot token is empty")
	errMissingHash     = errors.New("hash is missing")
	errMissingAuthDate = errors.New("auth_date is missing")
	errExpired         = errors.New("auth_date is too old")
	errFromFuture      = errors.New("auth_date is in the future")
	errRepeatedKey     = errors.New("repeated key")
	errMissingUserID   = errors.New("user id is missing")
)

type TelegramUserData struct {
	ID         int64
	Username   string
	FirstName  string
	AuthDate   time.Time
	StartParam string
}

type Verifier struct {
	botToken      string
	maxAge        time.Duration
	maxFutureSkew time.Duration
	now           func() time.Time
}

type Option func(*Verifier)

func WithMaxAge(d time.Duration) Option {
	return func(v *Verifier) {
		v.maxAge = d
	}
}

func WithMaxFutureSkew(d time.Duration) Option {
	return func(v *Verifier) {
		v.maxFutureSkew = d
	}
}

func WithClock(now func() time.Time) Option {
	return func(v *Verifier) {
		v.now = now
	}
}

func NewVerifier(botToken string, opts ...Option) *Verifier {
	v := &Verifier{
		botToken:      botToken,
		maxAge:        DefaultMaxAge,
		maxFutureSkew: DefaultMaxFutureSkew,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify checks the signature and freshness of Telegram WebApp launch data and
// returns the user it was issued for.
func (v *Verifier) Verify(initData string) (*TelegramUserData, error) {
	data, err := v.validate(initData)
	if err != nil {
		logger.Logger().Debug("telegram init data rejected", zap.Error(err))
		return nil, ErrInvalidInitData
	}
	return data, nil
}

func (v *Verifier) validate(initData string) (*TelegramUserData, error) {
	if initData == "" || v.botToken == "" {
		return nil, errEmptyInput
	}

	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, fmt.Errorf("parse query: %w", err)
	}
	for key, vals := range values {
		if len(vals) > 1 {
			return nil, fmt.Errorf("%w: %s", errRepeatedKey, key)
		}
	}

	if values.Get("hash") == "" {
		return nil, errMissingHash
	}

	rawAuthDate := values.Get("auth_date")
	if rawAuthDate == "" {
		return nil, errMissingAuthDate
	}
	authDate, err := strconv.ParseInt(rawAuthDate, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse auth_date: %w", err)
	}

	age := v.now().Unix() - authDate
	if age > int64(v.maxAge/time.Second) {
		return nil, errExpired
	}
	if -age > int64(v.maxFutureSkew/time.Second) {
		return nil, errFromFuture
	}

	// Freshness is checked above against the injected clock.
	if err := initdata.Validate(initData, v.botToken, 0); err != nil {
		return nil, err
	}

	values.Del("hash")
	data, err := initdata.Parse(values.Encode())
	if err != nil {
		return nil, err
	}
	if data.User.ID == 0 {
		return nil, errMissingUserID
	}

	return &TelegramUserData{
		ID:         data.User.ID,
		Username:   data.User.Username,
		FirstName:  data.User.FirstName,
		AuthDate:   time.Unix(authDate, 0).UTC(),
		StartParam: data.StartParam,
	}, nil
}
