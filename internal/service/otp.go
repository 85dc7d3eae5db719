package service

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"
	"time"
)

const (
	otpMin = 100000
	otpMax = 999999

	maskKeep = 4
)

// OTPIssuer выдает шестизначные одноразовые коды
type OTPIssuer struct {
	random io.Reader
	now    func() time.Time
}

func NewOTPIssuer() *OTPIssuer {
	return &OTPIssuer{random: rand.Reader, now: time.Now}
}

// Issue возвращает код из диапазона [100000, 999999] и время выдачи
func (i *OTPIssuer) Issue() (string, time.Time, error) {
	n, err := rand.Int(i.random, big.NewInt(otpMax-otpMin+1))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate otp: %w", err)
	}
	return strconv.FormatInt(n.Int64()+otpMin, 10), i.now(), nil
}

// MaskDestination скрывает середину локальной части адреса.
// Локальная часть длиной до 8 символов не маскируется.
// Пример: abcdefghij@example.com -> abcd**ghij@example.com
func MaskDestination(address string) string {
	at := strings.LastIndex(address, "@")
	if at < 0 {
		return address
	}
	local := []rune(address[:at])
	if len(local) <= 2*maskKeep {
		return address
	}
	masked := string(local[:maskKeep]) +
		strings.Repeat("*", len(local)-2*maskKeep) +
		string(local[len(local)-maskKeep:])
	return masked + address[at:]
}
