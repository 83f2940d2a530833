package scorer

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"solana_sniper/internal/helper"
)

type rugCheckReport struct {
	Mint            string  `json:"mint"`
	MintAuthority   *string `json:"mintAuthority"`
	FreezeAuthority *string `json:"freezeAuthority"`
	TransferFee     struct {
		Pct float64 `json:"pct"`
	} `json:"transferFee"`
	TopHolders []struct {
		Address string  `json:"address"`
		Pct     float64 `json:"pct"`
	} `json:"topHolders"`
	Markets []struct {
		LP *struct {
			LPLockedPct float64 `json:"lpLockedPct"`
		} `json:"lp"`
	} `json:"markets"`
}

// RugCheck reads token safety reports from the rugcheck.xyz API.
type RugCheck struct {
	baseURL string
	http    *http.Client
}

func NewRugCheck(baseURL string, client *http.Client) *RugCheck {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &RugCheck{baseURL: strings.TrimRight(baseURL, "/"), http: client}
}

func (r *RugCheck) Facts(ctx context.Context, address string) (TokenFacts, error) {
	var rep rugCheckReport
	url := fmt.Sprintf("%s/v1/tokens/%s/report", r.baseURL, address)
	if err := helper.GetJSON(ctx, r.http, url, nil, &rep); err != nil {
		return TokenFacts{}, fmt.Errorf("rugcheck report: %w", err)
	}

	f := TokenFacts{
		MintAuthorityRevoked:   emptyAuthority(rep.MintAuthority),
		FreezeAuthorityRevoked: emptyAuthority(rep.FreezeAuthority),
		TransferTaxFraction:    rep.TransferFee.Pct / 100,
		Source:                 "rugcheck",
	}
	for _, m := range rep.Markets {
		if m.LP != nil && m.LP.LPLockedPct/100 > f.LPLockedFraction {
			f.LPLockedFraction = m.LP.LPLockedPct / 100
		}
	}

	pcts := make([]float64, 0, len(rep.TopHolders))
	for _, h := range rep.TopHolders {
		pcts = append(pcts, h.Pct)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(pcts)))
	for i, p := range pcts {
		if i == 10 {
			break
		}
		f.TopHoldersFraction += p / 100
	}
	return f, nil
}

func emptyAuthority(a *string) bool {
	return a == nil || *a == ""
}
