package engine

import (
	"fmt"

	"github.com/basketlabs/rebalancer/internal/types"
)

// checkTradePermission implements the authorization matrix: either the
// basket's allow-list grants the account, or anyone-may-trade is on, in which
// case the caller must additionally be direct (see Caller).
func (e *Engine) checkTradePermission(rt *basketRuntime, caller Caller) error {
	rt.stateMu.RLock()
	perms := rt.permissions
	anyone := perms.AnyoneTrade
	allowed := perms.Allowed[caller.Account]
	rt.stateMu.RUnlock()

	if anyone {
		if !caller.Direct {
			return ErrCallerNotDirect
		}
		return nil
	}
	if !allowed {
		return fmt.Errorf("%w: %s", ErrNotAllowedTrader, caller.Account)
	}
	return nil
}

// SetTraderStatus grants or revokes trading permission for a batch of
// accounts. Manager only. Newly seen accounts are appended to the history
// list so stale allow-list entries can be swept later.
func (e *Engine) SetTraderStatus(caller Caller, id types.BasketID, traders []string, statuses []bool) error {
	rt, err := e.runtime(id)
	if err != nil {
		return err
	}
	if caller.Account != rt.manager {
		return ErrNotManager
	}
	if err := rt.guard.enter(); err != nil {
		return err
	}
	defer rt.guard.exit()

	if len(traders) != len(statuses) {
		return fmt.Errorf("%w: %d traders, %d statuses", ErrArrayLengthMismatch, len(traders), len(statuses))
	}
	if len(traders) == 0 {
		return fmt.Errorf("%w: empty trader list", ErrArrayLengthMismatch)
	}

	rt.stateMu.Lock()
	for i, trader := range traders {
		if _, seen := rt.permissions.Allowed[trader]; !seen {
			rt.permissions.History = append(rt.permissions.History, trader)
		}
		rt.permissions.Allowed[trader] = statuses[i]
		e.logger.Info().
			Str("basket", string(id)).
			Str("trader", trader).
			Bool("allowed", statuses[i]).
			Msg("Trader status updated")
	}
	rt.stateMu.Unlock()
	return nil
}

// SetAnyoneTrade toggles unrestricted trading for the basket. Manager only.
func (e *Engine) SetAnyoneTrade(caller Caller, id types.BasketID, anyone bool) error {
	rt, err := e.runtime(id)
	if err != nil {
		return err
	}
	if caller.Account != rt.manager {
		return ErrNotManager
	}
	if err := rt.guard.enter(); err != nil {
		return err
	}
	defer rt.guard.exit()

	rt.stateMu.Lock()
	rt.permissions.AnyoneTrade = anyone
	rt.stateMu.Unlock()

	e.logger.Info().
		Str("basket", string(id)).
		Bool("anyoneTrade", anyone).
		Msg("Anyone-trade flag updated")
	return nil
}

// IsAllowedTrader reports whether the account may trade the basket right now.
func (e *Engine) IsAllowedTrader(id types.BasketID, account string) (bool, error) {
	rt, err := e.runtime(id)
	if err != nil {
		return false, err
	}
	rt.stateMu.RLock()
	defer rt.stateMu.RUnlock()
	return rt.permissions.AnyoneTrade || rt.permissions.Allowed[account], nil
}

// Permissions returns a copy of the basket's trade permission state.
func (e *Engine) Permissions(id types.BasketID) (types.TradePermissions, error) {
	rt, err := e.runtime(id)
	if err != nil {
		return types.TradePermissions{}, err
	}
	rt.stateMu.RLock()
	defer rt.stateMu.RUnlock()
	out := types.TradePermissions{
		AnyoneTrade: rt.permissions.AnyoneTrade,
		Allowed:     make(map[string]bool, len(rt.permissions.Allowed)),
		History:     append([]string(nil), rt.permissions.History...),
	}
	for k, v := range rt.permissions.Allowed {
		out.Allowed[k] = v
	}
	return out, nil
}
