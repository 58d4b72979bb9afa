package query

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark/frontend"
)

// AssertInRange constrains v to [0, 2^bits). The value is decomposed into
// limbs by an untrusted hint, the recomposition is pinned by an equality and
// every limb is looked up in the shared membership table. Widths that do not
// fill the last limb shift it up so the lookup also bounds the remainder.
func (cfg *Config) AssertInRange(v frontend.Variable, bits int) {
	api := cfg.api
	if bits < 0 || bits > cfg.WordBits() {
		panic(fmt.Sprintf("query: range width %d outside [0,%d]", bits, cfg.WordBits()))
	}
	if bits == 0 {
		api.AssertIsEqual(v, 0)
		return
	}
	lb := cfg.lookupBits
	nbLimbs := (bits + lb - 1) / lb
	rem := bits % lb
	limbs, err := api.Compiler().NewHint(decomposeHint, nbLimbs, lb, v)
	if err != nil {
		panic(err)
	}
	var composed frontend.Variable = 0
	coef := big.NewInt(1)
	base := new(big.Int).Lsh(big.NewInt(1), uint(lb))
	for i := range limbs {
		composed = api.Add(composed, api.Mul(limbs[i], new(big.Int).Set(coef)))
		coef.Mul(coef, base)
	}
	api.AssertIsEqual(composed, v)

	queries := make([]frontend.Variable, 0, nbLimbs+1)
	queries = append(queries, limbs...)
	if rem != 0 {
		queries = append(queries, api.Mul(limbs[nbLimbs-1], 1<<(lb-rem)))
	}
	cfg.table().Lookup(queries...)
}

// AssertLess constrains v < threshold over the slack window u = 2^slackBits,
// by range checking v - threshold + u into [0, u). The caller must have
// constrained v to the word domain already; without that bound the window
// shift is free to wrap.
func (cfg *Config) AssertLess(v frontend.Variable, threshold uint64, slackBits uint8) {
	u := cfg.window(threshold, slackBits)
	diff := cfg.api.Add(cfg.api.Sub(v, new(big.Int).SetUint64(threshold)), u)
	cfg.AssertInRange(diff, int(slackBits))
}

// IsLess returns a boolean flag proving v < threshold in both directions: a
// set flag pins v - threshold + u into the slack window, a cleared flag pins
// v - threshold into the word domain. The caller must have constrained v to
// the word domain already.
func (cfg *Config) IsLess(v frontend.Variable, threshold uint64, slackBits uint8) frontend.Variable {
	api := cfg.api
	t := new(big.Int).SetUint64(threshold)
	u := cfg.window(threshold, slackBits)
	res, err := api.Compiler().NewHint(isLessHint, 1, v, t)
	if err != nil {
		panic(err)
	}
	flag := res[0]
	api.AssertIsBoolean(flag)
	below := api.Mul(flag, api.Add(api.Sub(v, t), u))
	cfg.AssertInRange(below, int(slackBits))
	above := api.Mul(api.Sub(1, flag), api.Sub(v, t))
	cfg.AssertInRange(above, cfg.WordBits())
	return flag
}

// window returns 2^slackBits after checking it covers the threshold.
func (cfg *Config) window(threshold uint64, slackBits uint8) *big.Int {
	if int(slackBits) > cfg.WordBits() {
		panic(fmt.Sprintf("query: slack width %d outside word domain", slackBits))
	}
	u := new(big.Int).Lsh(big.NewInt(1), uint(slackBits))
	if u.Cmp(new(big.Int).SetUint64(threshold)) < 0 {
		panic(fmt.Sprintf("query: slack window 2^%d below threshold %d", slackBits, threshold))
	}
	return u
}
