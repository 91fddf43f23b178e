package services

import (
	"github.com/pkg/errors"

	"startuppush/internal/db"
)

// 业务错误，handler 通过 errors.Is 映射到 HTTP 状态码
var (
	ErrValidation         = errors.New("validation failed")
	ErrUnauthorized       = errors.New("login required")
	ErrForbidden          = errors.New("permission denied")
	ErrAlreadyVoted       = errors.New("you have already voted on this product")
	ErrInsufficientPoints = errors.New("insufficient points")
	ErrNotFound           = errors.New("not found")
	ErrSoldOut            = errors.New("plan is sold out for this month")
	ErrInvalidTransition  = errors.New("invalid moderation transition")
	ErrPromotionActive    = errors.New("product already has an active promotion")
	ErrUserRestricted     = errors.New("account is restricted")
)

// validation 包装一条具体的校验信息
func validation(msg string) error {
	return errors.Wrap(ErrValidation, msg)
}

// notFound 把存储层的 ErrNotFound 转成业务层的 ErrNotFound，其他错误原样返回
func notFound(err error) error {
	if errors.Is(err, db.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
