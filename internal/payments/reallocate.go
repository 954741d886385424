package payments

// Reallocate redistributes the outstanding balance of a plan across its
// non-paid installments. Paid entries are frozen and returned untouched; the
// relative order and identity of every entry is preserved, and only Amount is
// rewritten on the targets.
//
// Arithmetic is in integer cents: base = remaining/n truncates to whole
// cents, and the leftover cent remainder is assigned to the last non-paid
// installment by original order so the target amounts always sum exactly to
// max(totalAmount-paidAmount, 0). A plan whose installments are all paid is
// returned unchanged regardless of the new total.
func Reallocate(installments []Installment, totalAmount, paidAmount int64) []Installment {
	out := make([]Installment, len(installments))
	copy(out, installments)

	var targets []int
	for i := range out {
		if !out[i].Paid() {
			targets = append(targets, i)
		}
	}
	if len(targets) == 0 {
		return out
	}

	remaining := totalAmount - paidAmount
	if remaining < 0 {
		remaining = 0
	}

	n := int64(len(targets))
	base := remaining / n
	remainder := remaining - base*n

	for _, idx := range targets {
		out[idx].Amount = base
	}
	out[targets[len(targets)-1]].Amount = base + remainder
	return out
}

// SplitEven divides a total into n near-equal cent amounts using the same
// truncate-and-carry rule as Reallocate: every share is total/n rounded down,
// with the remainder on the last share.
func SplitEven(total int64, n int) []int64 {
	if n <= 0 {
		return nil
	}
	if total < 0 {
		total = 0
	}
	base := total / int64(n)
	shares := make([]int64, n)
	for i := range shares {
		shares[i] = base
	}
	shares[n-1] = base + (total - base*int64(n))
	return shares
}
