package request

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/sievelab/sieved/domain"
)

// SieveQuery binds GET /sieve query parameters. Upper is a pointer so a
// missing parameter is distinguishable from upper=0, which is a valid
// (empty) request. Non-numeric or negative values fail the uint binding.
type SieveQuery struct {
	Domain string  `form:"domain" binding:"omitempty,domainkey"`
	Lower  uint64  `form:"lower"`
	Upper  *uint64 `form:"upper" binding:"required"`
}

// DomainKey returns the requested domain, defaulting to primes.
func (r *SieveQuery) DomainKey() string {
	if r.Domain == "" {
		return domain.FilterPrimes
	}
	return r.Domain
}

// ToRange: Request -> Domain
func (r *SieveQuery) ToRange() domain.Range {
	return domain.Range{
		Lower: r.Lower,
		Upper: *r.Upper,
	}
}

var domainKeyPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]{0,63}$`)

// RegisterValidations installs the custom query validators on gin's
// binding engine. Called once from main.
func RegisterValidations() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("domainkey", func(fl validator.FieldLevel) bool {
			return domainKeyPattern.MatchString(fl.Field().String())
		})
	}
}
