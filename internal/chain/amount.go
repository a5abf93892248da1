package chain

import (
	"fmt"
	"math/big"
	"strings"
)

// RawFromHuman 将人类可读金额字符串转换为最小单位整数
// 拒绝空串、负数、非数字和超过decimals的小数位
func RawFromHuman(human string, decimals int) (*big.Int, error) {
	s := strings.TrimSpace(human)
	if s == "" {
		return nil, fmt.Errorf("empty amount")
	}
	if strings.HasPrefix(s, "-") {
		return nil, fmt.Errorf("negative amount: %s", human)
	}
	if decimals < 0 {
		return nil, fmt.Errorf("invalid decimals: %d", decimals)
	}

	intPart := s
	fracPart := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart = s[:i]
		fracPart = s[i+1:]
		if strings.IndexByte(fracPart, '.') >= 0 {
			return nil, fmt.Errorf("invalid amount: %s", human)
		}
	}
	if intPart == "" {
		intPart = "0"
	}
	if len(fracPart) > decimals {
		return nil, fmt.Errorf("amount %s has more than %d decimal places", human, decimals)
	}

	// 小数部分右侧补零到decimals位
	digits := intPart + fracPart + strings.Repeat("0", decimals-len(fracPart))

	raw, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount: %s", human)
	}
	return raw, nil
}

// FloorToDecimals 将人类可读金额向下截断到指定小数位数
// 用于源链精度高于目标链精度时的换算，绝不向上取整
func FloorToDecimals(human string, decimals int) string {
	s := strings.TrimSpace(human)
	i := strings.IndexByte(s, '.')
	if i < 0 {
		return s
	}
	if decimals <= 0 {
		return s[:i]
	}
	frac := s[i+1:]
	if len(frac) <= decimals {
		return s
	}
	frac = strings.TrimRight(frac[:decimals], "0")
	if frac == "" {
		return s[:i]
	}
	return s[:i] + "." + frac
}

// HumanFromRaw 将最小单位整数转换为人类可读金额字符串，去掉小数尾部的零
func HumanFromRaw(raw *big.Int, decimals int) string {
	if decimals <= 0 {
		return raw.String()
	}

	divisor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	quo, rem := new(big.Int).QuoRem(raw, divisor, new(big.Int))

	if rem.Sign() == 0 {
		return quo.String()
	}

	fracDigits := rem.String()
	if len(fracDigits) < decimals {
		fracDigits = strings.Repeat("0", decimals-len(fracDigits)) + fracDigits
	}
	frac := strings.TrimRight(fracDigits, "0")
	return quo.String() + "." + frac
}
