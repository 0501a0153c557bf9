package main

import (
	"context"
	"fmt"

	"github.com/erain9/limitbook/pkg/core"
)

func main() {
	book := core.NewOrderBook()

	// Seed both sides
	for _, o := range []struct {
		side  core.Side
		price core.Price
		qty   core.Quantity
	}{
		{core.Bid, 100, 10},
		{core.Ask, 101, 10},
		{core.Ask, 101, 10},
		{core.Ask, 102, 10},
		{core.Bid, 99, 10},
		{core.Bid, 98, 10},
	} {
		id, err := book.Add(o.side, o.price, o.qty)
		if err != nil {
			panic(err)
		}
		fmt.Printf("Added %s %d @ %d as %s\n", o.side, o.qty, o.price, id)
	}

	bid, ask := book.RefreshBestBidAsk()
	fmt.Printf("Best bid: %d, best ask: %d\n", bid, ask)

	qty, err := book.TotalQuantity(core.Ask, 101)
	if err != nil {
		panic(err)
	}
	fmt.Printf("Quantity at ask 101: %d\n", qty)

	// Cross the spread: takes 20 at 101 and 5 at 102
	engine := core.NewMatchingEngine(book)
	result, err := engine.Submit(context.Background(), core.Bid, 102, 25)
	if err != nil {
		panic(err)
	}

	fmt.Printf("Status: %s, filled: %d, remaining: %d\n", result.Status, result.FilledQuantity(), result.Remaining)
	for _, f := range result.Fills {
		fmt.Printf("  fill %d @ %d against order %s\n", f.Quantity, f.Price, f.MakerID)
	}
	if avg, err := result.AvgPrice(); err == nil {
		fmt.Printf("Average price: %.3f\n", avg)
	}

	fmt.Println(book)
}
