package wellknown

import (
	"fmt"
	"strings"
	"time"
)

// decimalHandler projects {units, nanos} onto a decimal string, the same
// sign/fraction conventions as moneyHandler minus a currency code.
type decimalHandler struct{}

func (decimalHandler) TypeName() string { return "Decimal" }

func (decimalHandler) Process(fields map[string]FieldValue) Result {
	units, ok := fieldInt(fields, "units")
	if !ok {
		return none
	}
	nanos := fieldIntDefault(fields, "nanos", 0)
	return Result{Matched: true, Enrichment: map[string]any{"formatted": formatUnitsNanos(units, nanos, "")}}
}

// fixedPointHandler projects {mantissa, scale} onto a decimal string by
// shifting the decimal point scale digits from the right of mantissa.
type fixedPointHandler struct{}

func (fixedPointHandler) TypeName() string { return "FixedPoint" }

func (fixedPointHandler) Process(fields map[string]FieldValue) Result {
	mantissa, ok1 := fieldInt(fields, "mantissa")
	scale, ok2 := fieldInt(fields, "scale")
	if !ok1 || !ok2 {
		return none
	}
	return Result{Matched: true, Enrichment: map[string]any{"formatted": formatFixedPoint(mantissa, uint8(scale))}}
}

func formatFixedPoint(mantissa int64, scale uint8) string {
	if scale == 0 {
		return fmt.Sprintf("%d", mantissa)
	}
	negative := mantissa < 0
	abs := uint64(mantissa)
	if negative {
		abs = uint64(-mantissa)
	}
	divisor := uint64(1)
	for i := uint8(0); i < scale; i++ {
		next := divisor * 10
		if next < divisor {
			return "0"
		}
		divisor = next
	}
	intPart := abs / divisor
	fracPart := abs % divisor
	sign := ""
	if negative {
		sign = "-"
	}
	if fracPart == 0 {
		return fmt.Sprintf("%s%d", sign, intPart)
	}
	fracStr := fmt.Sprintf("%0*d", int(scale), fracPart)
	fracStr = strings.TrimRight(fracStr, "0")
	return fmt.Sprintf("%s%d.%s", sign, intPart, fracStr)
}

// fractionHandler projects {numerator, denominator} onto "num/denom" plus
// the reduced decimal value when denominator is non-zero.
type fractionHandler struct{}

func (fractionHandler) TypeName() string { return "Fraction" }

func (fractionHandler) Process(fields map[string]FieldValue) Result {
	num, ok1 := fieldInt(fields, "numerator")
	denom, ok2 := fieldInt(fields, "denominator")
	if !ok1 || !ok2 {
		return none
	}
	enrichment := map[string]any{"formatted": fmt.Sprintf("%d/%d", num, denom)}
	if denom != 0 {
		enrichment["decimal"] = float64(num) / float64(denom)
	}
	return Result{Matched: true, Enrichment: enrichment}
}

// colorHandler projects {red, green, blue, alpha} 0.0-1.0 floats onto an
// "#RRGGBBAA" hex string.
type colorHandler struct{}

func (colorHandler) TypeName() string { return "Color" }

func (colorHandler) Process(fields map[string]FieldValue) Result {
	red, ok1 := fieldFloat(fields, "red")
	green, ok2 := fieldFloat(fields, "green")
	blue, ok3 := fieldFloat(fields, "blue")
	if !ok1 || !ok2 || !ok3 {
		return none
	}
	alpha := fieldFloatDefault(fields, "alpha", 1.0)
	hex := fmt.Sprintf("#%02X%02X%02X%02X", to255(red), to255(green), to255(blue), to255(alpha))
	return Result{Matched: true, Enrichment: map[string]any{"hex": hex}}
}

func to255(v float64) int {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return int(v*255.0 + 0.5)
}

// latLngHandler projects {latitude, longitude} floats onto a "lat,lng"
// formatted string.
type latLngHandler struct{}

func (latLngHandler) TypeName() string { return "LatLng" }

func (latLngHandler) Process(fields map[string]FieldValue) Result {
	lat, ok1 := fieldFloat(fields, "latitude")
	lng, ok2 := fieldFloat(fields, "longitude")
	if !ok1 || !ok2 {
		return none
	}
	return Result{Matched: true, Enrichment: map[string]any{
		"formatted": fmt.Sprintf("%.6f,%.6f", lat, lng),
	}}
}

// moneyHandler projects {currency_code, units, nanos} onto "CODE amount"
// plus a currencyCode enrichment field.
type moneyHandler struct{}

func (moneyHandler) TypeName() string { return "Money" }

func (moneyHandler) Process(fields map[string]FieldValue) Result {
	raw, ok := fieldBytes(fields, "currency_code")
	if !ok {
		return none
	}
	code := strings.TrimRight(string(raw), "\x00")
	units, ok := fieldInt(fields, "units")
	if !ok {
		return none
	}
	nanos := fieldIntDefault(fields, "nanos", 0)
	return Result{Matched: true, Enrichment: map[string]any{
		"currencyCode": code,
		"formatted":    formatUnitsNanos(units, nanos, code+" "),
	}}
}

func formatUnitsNanos(units, nanos int64, prefix string) string {
	negative := units < 0 || (units == 0 && nanos < 0)
	absUnits := absInt64(units)
	absNanos := absInt64(nanos)
	sign := ""
	if negative {
		sign = "-"
	}
	if absNanos == 0 {
		return fmt.Sprintf("%s%s%d", prefix, sign, absUnits)
	}
	decimalStr := fmt.Sprintf("%.9f", float64(absNanos)/1_000_000_000.0)
	frac := strings.TrimRight(strings.TrimPrefix(decimalStr, "0."), "0")
	return fmt.Sprintf("%s%s%d.%s", prefix, sign, absUnits, frac)
}

// quaternionHandler projects {x, y, z, w} floats onto a fixed-precision
// "(x, y, z, w)" tuple string.
type quaternionHandler struct{}

func (quaternionHandler) TypeName() string { return "Quaternion" }

func (quaternionHandler) Process(fields map[string]FieldValue) Result {
	x, ok1 := fieldFloat(fields, "x")
	y, ok2 := fieldFloat(fields, "y")
	z, ok3 := fieldFloat(fields, "z")
	w, ok4 := fieldFloat(fields, "w")
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return none
	}
	formatted := fmt.Sprintf("(%.6f, %.6f, %.6f, %.6f)", x, y, z, w)
	return Result{Matched: true, Enrichment: map[string]any{"formatted": formatted}}
}

// intervalHandler projects {start_time, end_time} unix-second timestamps
// onto an RFC-3339 "start - end" formatted string.
type intervalHandler struct{}

func (intervalHandler) TypeName() string { return "Interval" }

func (intervalHandler) Process(fields map[string]FieldValue) Result {
	start, ok1 := fieldInt(fields, "start_time")
	end, ok2 := fieldInt(fields, "end_time")
	if !ok1 || !ok2 {
		return none
	}
	startISO := time.Unix(start, 0).UTC().Format(time.RFC3339)
	endISO := time.Unix(end, 0).UTC().Format(time.RFC3339)
	return Result{Matched: true, Enrichment: map[string]any{
		"formatted":    startISO + " - " + endISO,
		"startIso8601": startISO,
		"endIso8601":   endISO,
	}}
}

// instructionDataHandler projects a nested {program_idx, data_size, data}
// payload onto a hex-encoded preview, flagging it for recursive reflection
// by the caller (the raw bytes encode another instruction to decode against
// the program it targets).
type instructionDataHandler struct{}

func (instructionDataHandler) TypeName() string { return "InstructionData" }

func (instructionDataHandler) Process(fields map[string]FieldValue) Result {
	enrichment := map[string]any{}
	if idx, ok := fieldInt(fields, "program_idx"); ok {
		enrichment["programIndex"] = idx
	}
	if size, ok := fieldInt(fields, "data_size"); ok {
		enrichment["dataSize"] = size
	}
	if data, ok := fieldBytes(fields, "data"); ok {
		enrichment["dataHex"] = fmt.Sprintf("0x%x", data)
		enrichment["_pendingReflection"] = true
	}
	if len(enrichment) == 0 {
		return none
	}
	return Result{Matched: true, Enrichment: enrichment}
}
