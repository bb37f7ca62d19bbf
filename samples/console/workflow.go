package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/cschleiden/go-dialogflow/dialog"
	"github.com/cschleiden/go-dialogflow/dialog/prompts"
	wf "github.com/cschleiden/go-dialogflow/workflow"
)

type OrderOptions struct {
	Shop string `json:"shop"`
}

type Order struct {
	ID    string   `json:"id"`
	Items []string `json:"items"`
}

var menu = map[string]int{
	"pizza": 9,
	"pasta": 8,
	"salad": 6,
}

func OrderWorkflow(ctx wf.Context, o OrderOptions) (string, error) {
	logger := ctx.Logger()
	logger.Info("starting order", "shop", o.Shop)

	if _, err := wf.SendMessage(fmt.Sprintf("Welcome to %s!", o.Shop)).Await(ctx); err != nil {
		return "", err
	}

	order := Order{ID: ctx.NewGUID()}

	for {
		item, err := wf.Prompt[string]("item", prompts.PromptOptions{
			Prompt:      "What would you like? (pizza, pasta, salad or done)",
			RetryPrompt: "Please tell me what you would like.",
		}).Await(ctx)
		if err != nil {
			return "", err
		}

		item = strings.ToLower(strings.TrimSpace(item))
		if item == "done" {
			break
		}

		price, err := wf.Call(func(ctx context.Context, tc dialog.TurnContext) (int, error) {
			return lookupPrice(item)
		}).WithDefaultRetry().Await(ctx)
		if err != nil {
			if _, err := wf.SendMessage(fmt.Sprintf("Sorry, we don't have %s.", item)).Await(ctx); err != nil {
				return "", err
			}

			continue
		}

		order.Items = append(order.Items, item)

		if _, err := wf.SendMessage(fmt.Sprintf("Added %s for %d EUR.", item, price)).Await(ctx); err != nil {
			return "", err
		}
	}

	if len(order.Items) == 0 {
		return "Maybe next time.", nil
	}

	ok, err := wf.Prompt[bool]("confirm", prompts.PromptOptions{
		Prompt: fmt.Sprintf("Order %s? (yes/no)", strings.Join(order.Items, ", ")),
	}).Await(ctx)
	if err != nil {
		return "", err
	}

	if !ok {
		return "Order cancelled.", nil
	}

	placedAt := ctx.Now()
	logger.Info("order placed", "order", order.ID, "items", len(order.Items))

	return fmt.Sprintf("Order %s placed at %s.", order.ID[:8], placedAt.Format("15:04")), nil
}

func lookupPrice(item string) (int, error) {
	price, ok := menu[item]
	if !ok {
		return 0, wf.WrapError(fmt.Errorf("unknown item %q", item))
	}

	return price, nil
}
