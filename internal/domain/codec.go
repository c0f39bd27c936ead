package domain

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// The cache codec stores decimals as "<coefficient>e<exponent>" so a value
// read back has the same scale it was written with, and timestamps with
// nanosecond precision.

type exactDecimal string

func encodeDecimal(d decimal.Decimal) exactDecimal {
	return exactDecimal(fmt.Sprintf("%se%d", d.Coefficient().String(), d.Exponent()))
}

func (e exactDecimal) decode() (decimal.Decimal, error) {
	s := string(e)
	i := strings.LastIndexByte(s, 'e')
	if i <= 0 {
		return decimal.Decimal{}, fmt.Errorf("malformed decimal %q", s)
	}
	coef, ok := new(big.Int).SetString(s[:i], 10)
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("malformed decimal coefficient %q", s)
	}
	var exp int32
	if _, err := fmt.Sscanf(s[i+1:], "%d", &exp); err != nil {
		return decimal.Decimal{}, fmt.Errorf("malformed decimal exponent %q: %w", s, err)
	}
	return decimal.NewFromBigInt(coef, exp), nil
}

type cachedFactors struct {
	WorkloadImpact     exactDecimal  `json:"wi"`
	RemainingCapacity  exactDecimal  `json:"rc"`
	TimeBufferMinutes  int           `json:"tb"`
	BottleneckResource ResourceClass `json:"br"`
	CongestionFactor   exactDecimal  `json:"cf"`
	VIPOverrideUsed    bool          `json:"vip"`
}

type cachedDecision struct {
	CanShipToday        bool           `json:"ok"`
	Status              DecisionStatus `json:"st"`
	Confidence          exactDecimal   `json:"cn"`
	CurrentUtilization  exactDecimal   `json:"cu"`
	EstimatedCompletion string         `json:"ec"`
	Message             string         `json:"msg"`
	Factors             cachedFactors  `json:"f"`
	CalculatedAt        string         `json:"at"`
}

// EncodeDecision serializes d for the decision cache
func EncodeDecision(d Decision) ([]byte, error) {
	return json.Marshal(cachedDecision{
		CanShipToday:        d.CanShipToday,
		Status:              d.Status,
		Confidence:          encodeDecimal(d.Confidence),
		CurrentUtilization:  encodeDecimal(d.CurrentUtilization),
		EstimatedCompletion: d.EstimatedCompletion.Format(time.RFC3339Nano),
		Message:             d.Message,
		Factors: cachedFactors{
			WorkloadImpact:     encodeDecimal(d.Factors.WorkloadImpact),
			RemainingCapacity:  encodeDecimal(d.Factors.RemainingCapacity),
			TimeBufferMinutes:  d.Factors.TimeBufferMinutes,
			BottleneckResource: d.Factors.BottleneckResource,
			CongestionFactor:   encodeDecimal(d.Factors.CongestionFactor),
			VIPOverrideUsed:    d.Factors.VIPOverrideUsed,
		},
		CalculatedAt: d.CalculatedAt.Format(time.RFC3339Nano),
	})
}

// DecodeDecision is the inverse of EncodeDecision
func DecodeDecision(data []byte) (Decision, error) {
	var c cachedDecision
	if err := json.Unmarshal(data, &c); err != nil {
		return Decision{}, fmt.Errorf("failed to decode cached decision: %w", err)
	}

	var d Decision
	fields := []struct {
		in  exactDecimal
		out *decimal.Decimal
	}{
		{c.Confidence, &d.Confidence},
		{c.CurrentUtilization, &d.CurrentUtilization},
		{c.Factors.WorkloadImpact, &d.Factors.WorkloadImpact},
		{c.Factors.RemainingCapacity, &d.Factors.RemainingCapacity},
		{c.Factors.CongestionFactor, &d.Factors.CongestionFactor},
	}
	for _, field := range fields {
		v, err := field.in.decode()
		if err != nil {
			return Decision{}, fmt.Errorf("failed to decode cached decision: %w", err)
		}
		*field.out = v
	}

	completion, err := time.Parse(time.RFC3339Nano, c.EstimatedCompletion)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to decode cached decision: %w", err)
	}
	calculatedAt, err := time.Parse(time.RFC3339Nano, c.CalculatedAt)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to decode cached decision: %w", err)
	}

	d.CanShipToday = c.CanShipToday
	d.Status = c.Status
	d.EstimatedCompletion = completion.UTC()
	d.Message = c.Message
	d.Factors.TimeBufferMinutes = c.Factors.TimeBufferMinutes
	d.Factors.BottleneckResource = c.Factors.BottleneckResource
	d.Factors.VIPOverrideUsed = c.Factors.VIPOverrideUsed
	d.CalculatedAt = calculatedAt.UTC()
	return d, nil
}
