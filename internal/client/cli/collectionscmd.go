package cli

import (
	"context"
	"fmt"
)

func (a *App) cmdCollections(ctx context.Context) error {
	all, err := a.collections.List(ctx)
	if err != nil {
		return err
	}
	if len(all) == 0 {
		fmt.Println("No collections yet.")
		return nil
	}
	for _, c := range all {
		fmt.Printf("%d  %s\n", c.ID, c.Name)
	}
	return nil
}
