package models

type Operator struct {
	OperatorID string `db:"operator_id"`
	Email      string `db:"email"`
	Role       string `db:"role"`
	PassHash   []byte `db:"password_hash"`
}
