// Package quota enforces a per-identity send budget over a rolling or
// calendar-aligned window.
//
// A [Ledger] owns the budget state of every sender identity and applies a
// single [Policy]. Admission and recording are split: [Ledger.Admit] answers
// "can N more sends happen now?" without changing the count, and
// [Ledger.RecordSend] is called once per confirmed delivery.
//
// # Windows
//
// Rolling windows open on the first access after the previous one expired
// and last WindowDuration. Calendar windows are aligned to wall-clock
// boundaries in Policy.Location (midnight for day-long windows). Expiry is
// applied lazily on the next access; there is no background sweep.
//
// # Presets
//
//   - [HourlyPolicy]: rolling hour, cap 10
//   - [DailyStrictPolicy]: calendar day, cap 2, 30 minute gap, 1 recipient per campaign
//   - [RollingDayPolicy]: rolling 24 hours, cap 8
//
// # Usage
//
//	ledger, err := quota.NewLedger(quota.HourlyPolicy())
//	if err != nil {
//	    return err
//	}
//
//	if d := ledger.Admit(identity, len(recipients), time.Now()); !d.Allowed {
//	    return d.Err() // *quota.ExceededError, e.g. "cap exceeded (8/10)"
//	}
//
//	for _, rcpt := range recipients {
//	    if err := deliver(rcpt); err != nil {
//	        return err
//	    }
//	    ledger.RecordSend(identity, time.Now())
//	}
//
// State is kept in memory only. Restarting the process forgets every window.
package quota
