package main

import (
	"fmt"

	"github.com/jrsteele09/merchant-console/internal/utils"
	"github.com/jrsteele09/merchant-console/merchantapi"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// listFlags binds the paging and enum filters shared by the list commands
type listFlags struct {
	status string
	chain  string
	token  string
	limit  int
	offset int
}

func (l *listFlags) bind(flags *pflag.FlagSet, withStatus bool) {
	if withStatus {
		flags.StringVar(&l.status, "status", "", "Filter by status")
	}
	flags.StringVar(&l.chain, "chain", "", "Filter by chain")
	flags.StringVar(&l.token, "token", "", "Filter by token symbol")
	flags.IntVar(&l.limit, "limit", 0, "Maximum rows (backend default 50)")
	flags.IntVar(&l.offset, "offset", 0, "Rows to skip")
}

// transferFlags are the fields shared by payment and payout creation
type transferFlags struct {
	chain       string
	token       string
	amount      string
	recipient   string
	description string
}

func (t *transferFlags) bind(flags *pflag.FlagSet) {
	flags.StringVar(&t.chain, "chain", "", "Chain, e.g. ethereum or polygon")
	flags.StringVar(&t.token, "token", "", "Token symbol, e.g. USDC")
	flags.StringVar(&t.amount, "amount", "", "Decimal amount")
	flags.StringVar(&t.recipient, "recipient", "", "Recipient address")
	flags.StringVar(&t.description, "description", "", "Free text description")
}

func (t *transferFlags) parseAmount() (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(t.amount)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid --amount %q: %w", t.amount, err)
	}
	return amount, nil
}

func markRequired(cmd *cobra.Command, names ...string) {
	for _, name := range names {
		_ = cmd.MarkFlagRequired(name)
	}
}

func (a *app) paymentsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "payments", Short: "Payment requests"}

	var list listFlags
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List payment requests, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			payments, err := a.api.Payments.List(cmd.Context(), merchantapi.PaymentListParams{
				Status: merchantapi.PaymentStatus(list.status),
				Chain:  merchantapi.Chain(list.chain),
				Token:  merchantapi.TokenSymbol(list.token),
				Limit:  list.limit,
				Offset: list.offset,
			})
			if err != nil {
				return err
			}
			return a.print(payments)
		},
	}
	list.bind(listCmd.Flags(), true)

	getCmd := &cobra.Command{
		Use:   "get <payment-id>",
		Short: "Show one payment request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payment, err := a.api.Payments.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.print(payment)
		},
	}

	var create transferFlags
	var expiresIn int
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a payment request",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			amount, err := create.parseAmount()
			if err != nil {
				return err
			}
			payment, err := a.api.Payments.Create(cmd.Context(), merchantapi.CreatePaymentRequest{
				Chain:            merchantapi.Chain(create.chain),
				Token:            merchantapi.TokenSymbol(create.token),
				Amount:           amount,
				RecipientAddress: create.recipient,
				Description:      create.description,
				ExpiresIn:        expiresIn,
			})
			if err != nil {
				return err
			}
			return a.print(payment)
		},
	}
	create.bind(createCmd.Flags())
	createCmd.Flags().IntVar(&expiresIn, "expires-in", 0, "Minutes until the request expires (backend default 24h)")
	markRequired(createCmd, "chain", "token", "amount", "recipient")

	verifyCmd := &cobra.Command{
		Use:   "verify <payment-id> <tx-hash>",
		Short: "Check a transaction against a payment request",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := a.api.Payments.Verify(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return a.print(result)
		},
	}

	refundCmd := &cobra.Command{
		Use:   "refund <payment-id>",
		Short: "Refund a completed payment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := a.api.Payments.Refund(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.print(result)
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status <payment-id>",
		Short: "Show the status of a payment request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := a.api.Payments.Status(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.print(status)
		},
	}

	cmd.AddCommand(listCmd, getCmd, createCmd, verifyCmd, refundCmd, statusCmd)
	return cmd
}

func (a *app) walletsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "wallets", Short: "Receiving wallets"}

	var chain string
	var activeOnly bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List wallets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			params := merchantapi.WalletListParams{Chain: merchantapi.Chain(chain)}
			if cmd.Flags().Changed("active-only") {
				params.ActiveOnly = utils.Ptr(activeOnly)
			}
			wallets, err := a.api.Wallets.List(cmd.Context(), params)
			if err != nil {
				return err
			}
			return a.print(wallets)
		},
	}
	listCmd.Flags().StringVar(&chain, "chain", "", "Filter by chain")
	listCmd.Flags().BoolVar(&activeOnly, "active-only", true, "Only active wallets")

	var req merchantapi.CreateWalletRequest
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Add a wallet; without --address the backend generates one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			wallet, err := a.api.Wallets.Create(cmd.Context(), req)
			if err != nil {
				return err
			}
			return a.print(wallet)
		},
	}
	createCmd.Flags().StringVar((*string)(&req.Chain), "chain", "", "Chain")
	createCmd.Flags().StringVar(&req.Address, "address", "", "Existing address to receive on")
	markRequired(createCmd, "chain")

	balancesCmd := &cobra.Command{
		Use:   "balances [wallet-id]",
		Short: "Show token balances of one wallet, or of every active wallet",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				balances, err := a.api.Wallets.AllBalances(cmd.Context())
				if err != nil {
					return err
				}
				return a.print(balances)
			}
			balances, err := a.api.Wallets.Balances(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.print(balances)
		},
	}

	cmd.AddCommand(listCmd, createCmd, balancesCmd)
	return cmd
}

func (a *app) transactionsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "transactions", Short: "On-chain transactions"}

	var list listFlags
	var txHash string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			txs, err := a.api.Transactions.List(cmd.Context(), merchantapi.TransactionListParams{
				Status: merchantapi.TransactionStatus(list.status),
				Chain:  merchantapi.Chain(list.chain),
				Token:  merchantapi.TokenSymbol(list.token),
				TxHash: txHash,
				Limit:  list.limit,
				Offset: list.offset,
			})
			if err != nil {
				return err
			}
			return a.print(txs)
		},
	}
	list.bind(listCmd.Flags(), true)
	listCmd.Flags().StringVar(&txHash, "tx-hash", "", "Filter by transaction hash")

	var days int
	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize transactions over a period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := a.api.Transactions.Stats(cmd.Context(), merchantapi.StatsParams{Days: days})
			if err != nil {
				return err
			}
			return a.print(stats)
		},
	}
	statsCmd.Flags().IntVar(&days, "days", 0, "Period in days (backend default 30)")

	cmd.AddCommand(listCmd, statsCmd)
	return cmd
}

func (a *app) payoutsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "payouts", Short: "Outgoing payouts"}

	var list listFlags
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List payouts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			payouts, err := a.api.Payouts.List(cmd.Context(), merchantapi.PayoutListParams{
				Status: merchantapi.PayoutStatus(list.status),
				Chain:  merchantapi.Chain(list.chain),
				Token:  merchantapi.TokenSymbol(list.token),
				Limit:  list.limit,
				Offset: list.offset,
			})
			if err != nil {
				return err
			}
			return a.print(payouts)
		},
	}
	list.bind(listCmd.Flags(), true)

	var create transferFlags
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a pending payout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			amount, err := create.parseAmount()
			if err != nil {
				return err
			}
			payout, err := a.api.Payouts.Create(cmd.Context(), merchantapi.CreatePayoutRequest{
				Chain:            merchantapi.Chain(create.chain),
				Token:            merchantapi.TokenSymbol(create.token),
				Amount:           amount,
				RecipientAddress: create.recipient,
				Description:      create.description,
			})
			if err != nil {
				return err
			}
			return a.print(payout)
		},
	}
	create.bind(createCmd.Flags())
	markRequired(createCmd, "chain", "token", "amount", "recipient")

	executeCmd := &cobra.Command{
		Use:   "execute <payout-id>",
		Short: "Send a pending payout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := a.api.Payouts.Execute(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.print(result)
		},
	}

	cmd.AddCommand(listCmd, createCmd, executeCmd)
	return cmd
}

func (a *app) webhooksCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "webhooks", Short: "Webhook deliveries"}

	testCmd := &cobra.Command{
		Use:   "test",
		Short: "Send a test event to the configured webhook URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := a.api.Webhooks.Test(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(result)
		},
	}

	var params merchantapi.WebhookLogParams
	logsCmd := &cobra.Command{
		Use:   "logs",
		Short: "List delivery attempts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logs, err := a.api.Webhooks.Logs(cmd.Context(), params)
			if err != nil {
				return err
			}
			return a.print(logs)
		},
	}
	logsCmd.Flags().StringVar(&params.EventType, "event-type", "", "Filter by event type")
	logsCmd.Flags().IntVar(&params.Limit, "limit", 0, "Maximum rows (backend default 50)")
	logsCmd.Flags().IntVar(&params.Offset, "offset", 0, "Rows to skip")

	retryCmd := &cobra.Command{
		Use:   "retry <log-id>",
		Short: "Redeliver a logged event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := a.api.Webhooks.Retry(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.print(result)
		},
	}

	eventsCmd := &cobra.Command{
		Use:   "events",
		Short: "List the event types deliveries are made for",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			events, err := a.api.Webhooks.SupportedEvents(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(events)
		},
	}

	cmd.AddCommand(testCmd, logsCmd, retryCmd, eventsCmd)
	return cmd
}

func (a *app) merchantCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "merchant", Short: "Merchant profile"}

	profileCmd := &cobra.Command{
		Use:   "profile",
		Short: "Show the merchant profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			profile, err := a.api.Merchants.Profile(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(profile)
		},
	}

	var company, webhookURL string
	updateCmd := &cobra.Command{
		Use:   "update",
		Short: "Change the company name or webhook URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var req merchantapi.UpdateProfileRequest
			if cmd.Flags().Changed("company") {
				req.CompanyName = utils.Ptr(company)
			}
			if cmd.Flags().Changed("webhook-url") {
				req.WebhookURL = utils.Ptr(webhookURL)
			}
			profile, err := a.api.Merchants.UpdateProfile(cmd.Context(), req)
			if err != nil {
				return err
			}
			a.logger.Info().
				Str("company", utils.Value(req.CompanyName)).
				Str("webhook_url", utils.Value(req.WebhookURL)).
				Msg("profile updated")
			return a.print(profile)
		},
	}
	updateCmd.Flags().StringVar(&company, "company", "", "Company name")
	updateCmd.Flags().StringVar(&webhookURL, "webhook-url", "", "Webhook URL")

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show counts of payments, transactions, payouts and wallets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := a.api.Merchants.Stats(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(stats)
		},
	}

	cmd.AddCommand(profileCmd, updateCmd, statsCmd)
	return cmd
}
