package sip_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ghettovoice/sipsanity/sip"
)

func TestSanityStats_Report(t *testing.T) {
	t.Parallel()

	stats := new(sip.SanityStats)
	chk := newChecker(stats)
	txs := newStore(t, inviteRecord(inviteBranch))
	snd := sip.MessageSenderFunc(func(context.Context, []byte) error { return nil })

	for _, m := range []rawMsg{
		bye(),
		okResponse(),
		invite(),
		invite().set("To", "<tel:+1>"),
		invite().set("To", "<tel:+2>"),
		invite().set("Call-ID", instID+"loop"),
		okResponse().add("Via", "SIP/2.0/UDP b.com;branch=z9hG4bK2"),
		okResponse().del("From"),
	} {
		chk.Check(t.Context(), m.parse(t), txs, snd)
	}

	got := stats.Report()
	want := sip.SanityReport{
		Time:     got.Time,
		Accepted: 2,
		Dropped:  3,
		Rejected: 3,
		Failures: map[sip.SanityRule]uint64{
			sip.SanityRuleMergedRequest:  1,
			sip.SanityRuleURIScheme:      2,
			sip.SanityRuleLoopBack:       1,
			sip.SanityRuleSingleVia:      1,
			sip.SanityRuleMinimumHeaders: 1,
		},
		Replies: map[sip.ResponseStatus]uint64{
			sip.ResponseStatusUnsupportedURIScheme: 2,
			sip.ResponseStatusLoopDetected:         1,
		},
	}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Errorf("stats.Report() = %+v, want %+v\ndiff (-got +want):\n%v", got, want, diff)
	}

	if _, err := json.Marshal(got); err != nil {
		t.Errorf("json.Marshal(report) error = %v, want nil", err)
	}
}

func TestSanityStats_Nil(t *testing.T) {
	t.Parallel()

	var stats *sip.SanityStats
	if got := stats.Report(); got.Accepted != 0 || got.Failures != nil {
		t.Errorf("nil stats.Report() = %+v, want empty", got)
	}
	if !newChecker(stats).Check(t.Context(), bye().parse(t), nil, nil) {
		t.Errorf("checker.Check(bye) = false, want true")
	}
}
