package scorer

import (
	"context"

	"go.uber.org/zap"

	"solana_sniper/internal/solana"
)

// MintReader is the part of the RPC client the authority check needs.
type MintReader interface {
	GetMintInfo(ctx context.Context, mint string) (solana.MintInfo, error)
}

// MintAccount reads mint and freeze authorities straight from the chain.
type MintAccount struct {
	rpc MintReader
}

func NewMintAccount(rpc MintReader) *MintAccount {
	return &MintAccount{rpc: rpc}
}

func (m *MintAccount) Authorities(ctx context.Context, address string) (mintRevoked, freezeRevoked bool, err error) {
	info, err := m.rpc.GetMintInfo(ctx, address)
	if err != nil {
		return false, false, err
	}
	return emptyAuthority(info.MintAuthority), emptyAuthority(info.FreezeAuthority), nil
}

type AuthoritySource interface {
	Authorities(ctx context.Context, address string) (mintRevoked, freezeRevoked bool, err error)
}

// LayeredFacts takes everything from primary and lets the on-chain authority check override
// the two authority flags. If the override fails, primary's flags stand.
type LayeredFacts struct {
	primary   FactsSource
	authority AuthoritySource
	log       *zap.Logger
}

func NewLayeredFacts(primary FactsSource, authority AuthoritySource, log *zap.Logger) *LayeredFacts {
	if log == nil {
		log = zap.NewNop()
	}
	return &LayeredFacts{primary: primary, authority: authority, log: log}
}

func (l *LayeredFacts) Facts(ctx context.Context, address string) (TokenFacts, error) {
	f, err := l.primary.Facts(ctx, address)
	if err != nil {
		return TokenFacts{}, err
	}
	if l.authority == nil {
		return f, nil
	}
	mintRevoked, freezeRevoked, err := l.authority.Authorities(ctx, address)
	if err != nil {
		l.log.Warn("on-chain authority check failed, using report values", zap.String("address", address), zap.Error(err))
		return f, nil
	}
	f.MintAuthorityRevoked = mintRevoked
	f.FreezeAuthorityRevoked = freezeRevoked
	f.Source += "+chain"
	return f, nil
}
