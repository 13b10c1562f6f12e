package repository

import (
	"fmt"

	"yafs_miniapp/internal/model"

	"github.com/Masterminds/squirrel"
)

// claimQuery builds the conditional write behind ApplyClaim. A create inserts
// the row only if it is still absent; an update matches the gating column
// against the value the caller read.
func claimQuery(upd model.ClaimUpdate) (string, []interface{}, error) {
	if !upd.Field.Valid() {
		return "", nil, fmt.Errorf("%w: %q", errUnknownClaimField, upd.Field)
	}

	field := string(upd.Field)
	if upd.Create {
		return squirrel.
			Insert("users").
			SetMap(map[string]interface{}{
				"id":          upd.UserID,
				"total_coins": upd.Reward,
				field:         upd.ClaimedAt,
				"created_at":  upd.ClaimedAt,
			}).
			Suffix("ON CONFLICT (id) DO NOTHING " + returningUser).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
	}

	gate := squirrel.Eq{field: nil}
	if upd.Expected != nil {
		gate = squirrel.Eq{field: *upd.Expected}
	}

	return squirrel.
		Update("users").
		Set("total_coins", squirrel.Expr("total_coins + ?", upd.Reward)).
		Set(field, upd.ClaimedAt).
		Where(squirrel.Eq{"id": upd.UserID}).
		Where(gate).
		Suffix(returningUser).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
}

func referralInsertQuery(ref *model.Referral) (string, []interface{}, error) {
	return squirrel.
		Insert("referrals").
		SetMap(map[string]interface{}{
			"id":               ref.ID,
			"referrer_id":      ref.ReferrerID,
			"referred_user_id": ref.ReferredUserID,
			"bonus_amount":     ref.BonusAmount,
			"created_at":       ref.CreatedAt,
		}).
		Suffix("ON CONFLICT (referrer_id, referred_user_id) DO NOTHING").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
}

// referrerCreditQuery adds the bonus to the referrer, creating the row when
// the referrer has never claimed anything.
func referrerCreditQuery(ref *model.Referral) (string, []interface{}, error) {
	return squirrel.
		Insert("users").
		Columns("id", "total_coins", "created_at").
		Values(ref.ReferrerID, ref.BonusAmount, ref.CreatedAt).
		Suffix("ON CONFLICT (id) DO UPDATE SET total_coins = users.total_coins + EXCLUDED.total_coins RETURNING total_coins").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
}
