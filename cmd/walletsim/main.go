// walletsim runs the storage-deposit protocol and the internal balance
// ledger against a local pebble store, one simulated contract call per
// invocation. It exists to poke at the accounting without a chain:
//
//	walletsim -db /tmp/wallet -caller alice.near -deposit 10000000000000000000000 -op deposit
//	walletsim -db /tmp/wallet -caller alice.near -op balance
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nearkit/plugins/accounts"
	"github.com/nearkit/plugins/balances"
	"github.com/nearkit/plugins/host"
	"github.com/nearkit/plugins/native"
	"github.com/nearkit/plugins/pkg/db/pebble"
	"github.com/nearkit/plugins/pkg/log"
	"github.com/nearkit/plugins/pkg/serialization/codec"
)

func main() {
	var (
		dbPath    = flag.String("db", "walletsim.db", "pebble database directory")
		contract  = flag.String("contract", "wallet.near", "account id of the simulated contract")
		byteCost  = flag.String("byte-cost", "10000000000000000000", "storage price per byte")
		caller    = flag.String("caller", "alice.near", "predecessor account id of the call")
		deposit   = flag.String("deposit", "0", "attached deposit in yocto")
		op        = flag.String("op", "balance", "operation: deposit|withdraw|unregister|balance|bounds|credit|debit|resolve|transfer|balances|dump")
		account   = flag.String("account", "", "target account id (defaults to caller)")
		amount    = flag.String("amount", "", "operation amount in yocto or token units")
		token     = flag.String("token", "", "token id, e.g. ft:usdc.near or nft:art.near:42")
		recipient = flag.String("recipient", "", "recipient account id")
		force     = flag.Bool("force", false, "force unregistration")
		regOnly   = flag.Bool("registration-only", false, "deposit registers without prepaying extra")
		pending   = flag.String("pending", "", "pending transfer id for the resolve operation")
		outcome   = flag.String("outcome", "ok", "simulated transfer outcome for resolve: ok|fail|used:<amount>")
		logLevel  = flag.String("log-level", "info", "zerolog level")
	)
	flag.Parse()

	level, err := log.ParseLogLevel(*logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log.Init(log.Options{LogLevel: level, Type: log.ConsoleLogger})

	params := callParams{
		dbPath:    *dbPath,
		contract:  *contract,
		byteCost:  *byteCost,
		caller:    *caller,
		deposit:   *deposit,
		op:        *op,
		account:   *account,
		amount:    *amount,
		token:     *token,
		recipient: *recipient,
		force:     *force,
		regOnly:   *regOnly,
		pending:   *pending,
		outcome:   *outcome,
	}
	if err := run(params); err != nil {
		fmt.Fprintln(os.Stderr, "walletsim:", err)
		os.Exit(1)
	}
}

type callParams struct {
	dbPath    string
	contract  string
	byteCost  string
	caller    string
	deposit   string
	op        string
	account   string
	amount    string
	token     string
	recipient string
	force     bool
	regOnly   bool
	pending   string
	outcome   string
}

func run(p callParams) error {
	store, err := pebble.NewPersistentKVStore(p.dbPath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	if p.op == "dump" {
		return dumpStore(store)
	}

	price, err := native.BalanceFromDecimal(p.byteCost)
	if err != nil {
		return err
	}
	env, err := host.NewKVEnv(store, native.AccountID(p.contract), price)
	if err != nil {
		return err
	}
	attached, err := native.BalanceFromDecimal(p.deposit)
	if err != nil {
		return err
	}
	if err := env.BeginCall(native.AccountID(p.caller), attached); err != nil {
		return err
	}

	accs, err := accounts.NewAccounts(env, &codec.JSONCodec{}, balances.NewTokenBalances)
	if err != nil {
		return err
	}
	ledger := balances.NewLedger(accs)

	target := native.AccountID(p.account)
	if target == "" {
		target = native.AccountID(p.caller)
	}

	result, err := execute(env, accs, ledger, p, target)
	if err != nil {
		return err
	}
	return printResult(env, result)
}

func execute(env *host.KVEnv, accs *accounts.Accounts[*balances.TokenBalances], ledger *balances.Ledger[*balances.TokenBalances], p callParams, target native.AccountID) (any, error) {
	op, amount, token, recipient, force, regOnly := p.op, p.amount, p.token, p.recipient, p.force, p.regOnly
	switch op {
	case "deposit":
		return accs.StorageDeposit(target, regOnly)
	case "withdraw":
		var requested *native.Balance
		if amount != "" {
			parsed, err := native.BalanceFromDecimal(amount)
			if err != nil {
				return nil, err
			}
			requested = &parsed
		}
		return accs.StorageWithdraw(requested)
	case "unregister":
		return accs.StorageUnregister(force)
	case "balance":
		return accs.StorageBalanceOf(target)
	case "bounds":
		return accs.StorageBalanceBounds(), nil
	case "credit":
		// Simulates the token contract invoking the deposit hook.
		return ledger.FtOnTransfer(target, amount, "")
	case "debit":
		tok, amt, err := parseTokenAmount(token, amount)
		if err != nil {
			return nil, err
		}
		pending, err := ledger.WithdrawTo(amt, tok, native.AccountID(recipient), "")
		if err != nil {
			return nil, err
		}
		return pending, nil
	case "resolve":
		// Replays the self-callback of a prior debit. The caller must be
		// the contract account itself, as it would be on chain.
		id, err := uuid.Parse(p.pending)
		if err != nil {
			return nil, fmt.Errorf("parsing pending id: %w", err)
		}
		result, err := promiseOutcome(p.outcome)
		if err != nil {
			return nil, err
		}
		env.SetPromiseResult(result)
		return ledger.ResolveWithdraw(id)
	case "transfer":
		tok, amt, err := parseTokenAmount(token, amount)
		if err != nil {
			return nil, err
		}
		return nil, ledger.Transfer(native.AccountID(recipient), tok, amt, "")
	case "balances":
		return ledger.GetAllBalances(target)
	default:
		return nil, fmt.Errorf("unknown operation %q", op)
	}
}

func promiseOutcome(outcome string) (host.PromiseResult, error) {
	switch {
	case outcome == "ok":
		return host.PromiseResult{Success: true}, nil
	case outcome == "fail":
		return host.PromiseResult{Success: false}, nil
	case strings.HasPrefix(outcome, "used:"):
		used, err := native.BalanceFromDecimal(strings.TrimPrefix(outcome, "used:"))
		if err != nil {
			return host.PromiseResult{}, err
		}
		data, err := json.Marshal(used.String())
		if err != nil {
			return host.PromiseResult{}, err
		}
		return host.PromiseResult{Success: true, Data: data}, nil
	default:
		return host.PromiseResult{}, fmt.Errorf("unknown outcome %q", outcome)
	}
}

// dumpStore lists every raw record with its value size, reading the store
// directly below the host abstraction.
func dumpStore(store *pebble.KVStore) error {
	iter, err := store.NewIterator(nil, nil)
	if err != nil {
		return err
	}
	defer iter.Close()

	type record struct {
		Key   string `json:"key"`
		Bytes int    `json:"bytes"`
	}
	var records []record
	for iter.Next() {
		value, err := iter.Value()
		if err != nil {
			return err
		}
		records = append(records, record{Key: fmt.Sprintf("%q", iter.Key()), Bytes: len(value)})
	}
	raw, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(raw))
	return nil
}

func parseTokenAmount(token, amount string) (balances.TokenID, native.Balance, error) {
	var tok balances.TokenID
	if err := tok.UnmarshalText([]byte(token)); err != nil {
		return balances.TokenID{}, native.Balance{}, err
	}
	amt, err := native.BalanceFromDecimal(amount)
	if err != nil {
		return balances.TokenID{}, native.Balance{}, err
	}
	return tok, amt, nil
}

func printResult(env *host.KVEnv, result any) error {
	out := struct {
		Result    any                 `json:"result,omitempty"`
		Transfers []host.Transfer     `json:"transfers,omitempty"`
		Calls     []host.OutboundCall `json:"calls,omitempty"`
		Usage     uint64              `json:"storage_usage"`
	}{
		Result:    result,
		Transfers: env.Transfers(),
		Calls:     env.Calls(),
		Usage:     env.StorageUsage(),
	}
	raw, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(raw))
	return nil
}
