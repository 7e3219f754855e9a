package main

import "math/bits"

// millerRabinWitnesses is a deterministic witness set correct for every
// n < 3.3e24, which covers any value that fits in 64 bits.
var millerRabinWitnesses = [...]int64{2, 325, 9375, 28178, 450775, 9780504, 1795265022}

// IsPrime decides primality for non-negative n. It is pure and total: every
// input has a defined answer, there is no error return.
func IsPrime(n int64) bool {
	switch {
	case n <= 1:
		return false
	case n <= 3:
		return true
	case n%2 == 0 || n%3 == 0:
		return false
	}

	if n < 10_000 {
		return trialDivision(n)
	}
	return millerRabin(uint64(n))
}

// trialDivision checks 6k±1 candidates up to sqrt(n).
func trialDivision(n int64) bool {
	for i := int64(5); i*i <= n; i += 6 {
		if n%i == 0 || n%(i+2) == 0 {
			return false
		}
	}
	return true
}

// millerRabin runs the deterministic test with the fixed witness set above.
// All modular exponentiation is done with bits.Mul64/bits.Add64-backed
// 128-bit intermediates so no multiplication overflows a uint64.
func millerRabin(n uint64) bool {
	d := n - 1
	r := 0
	for d%2 == 0 {
		d /= 2
		r++
	}

	for _, a64 := range millerRabinWitnesses {
		a := uint64(a64)
		if a%n == 0 {
			continue
		}

		x := modPow(a, d, n)
		if x == 1 || x == n-1 {
			continue
		}

		composite := true
		for i := 0; i < r-1; i++ {
			x = modMul(x, x, n)
			if x == n-1 {
				composite = false
				break
			}
		}
		if composite {
			return false
		}
	}

	return true
}

// modMul computes (a*b) mod m without overflowing uint64, using the
// high/low 128-bit product from math/bits.
func modMul(a, b, m uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	_, rem := bits.Div64(hi%m, lo, m)
	return rem
}

// modPow computes base^exp mod m via square-and-multiply, using modMul for
// every multiplication so intermediates never overflow.
func modPow(base, exp, m uint64) uint64 {
	result := uint64(1) % m
	base %= m
	for exp > 0 {
		if exp&1 == 1 {
			result = modMul(result, base, m)
		}
		base = modMul(base, base, m)
		exp >>= 1
	}
	return result
}
