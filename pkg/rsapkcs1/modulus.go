package rsapkcs1

import (
	"math/big"

	"github.com/cronokirby/saferith"
)

// crtModulus wraps n = p⋅q and computes xᵈ (mod n) with two half-size
// exponentiations, one mod p and one mod q, recombined with Garner's formula.
type crtModulus struct {
	// represents modulus n
	n *saferith.Modulus
	// n = p⋅q
	p, q *saferith.Modulus
	// dP = d (mod p-1), dQ = d (mod q-1)
	dP, dQ *saferith.Nat
	// pNat = p, pInv = p⁻¹ (mod q)
	pNat, pInv *saferith.Nat
}

// newCRTModulus creates the cached values needed to accelerate exponentiation
// by d mod n = p⋅q.
func newCRTModulus(p, q, d *big.Int) *crtModulus {
	one := big.NewInt(1)
	pMinus1 := new(big.Int).Sub(p, one)
	qMinus1 := new(big.Int).Sub(q, one)

	pNat := new(saferith.Nat).SetBig(p, p.BitLen())
	qNat := new(saferith.Nat).SetBig(q, q.BitLen())
	nNat := new(saferith.Nat).Mul(pNat, qNat, -1)
	qMod := saferith.ModulusFromNat(qNat)

	dP := new(big.Int).Mod(d, pMinus1)
	dQ := new(big.Int).Mod(d, qMinus1)

	return &crtModulus{
		n:    saferith.ModulusFromNat(nNat),
		p:    saferith.ModulusFromNat(pNat),
		q:    qMod,
		dP:   new(saferith.Nat).SetBig(dP, pMinus1.BitLen()),
		dQ:   new(saferith.Nat).SetBig(dQ, qMinus1.BitLen()),
		pNat: new(saferith.Nat).SetNat(pNat),
		pInv: new(saferith.Nat).ModInverse(pNat, qMod),
	}
}

// exp returns xᵈ (mod n) for 0 ≤ x < n.
func (m *crtModulus) exp(x *big.Int) *big.Int {
	xNat := new(saferith.Nat).SetBig(x, m.n.BitLen())

	var xp, xq saferith.Nat
	xp.Mod(xNat, m.p)
	xq.Mod(xNat, m.q)
	xp.Exp(&xp, m.dP, m.p) // x₁ = xᵈ (mod p)
	xq.Exp(&xq, m.dQ, m.q) // x₂ = xᵈ (mod q)

	// r = x₁ + p ⋅ [p⁻¹ (mod q)] ⋅ [x₂ - x₁] (mod n)
	r := new(saferith.Nat).ModSub(&xq, &xp, m.n)
	r.ModMul(r, m.pInv, m.n)
	r.ModMul(r, m.pNat, m.n)
	r.ModAdd(r, &xp, m.n)
	return r.Big()
}
