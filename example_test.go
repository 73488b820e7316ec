package avmkit_test

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/hupe1980/avmkit"
	"github.com/hupe1980/avmkit/slotstore"
	"github.com/hupe1980/avmkit/state"
)

func Example() {
	ctx := context.Background()

	app := avmkit.App("counter").
		GlobalState(state.Uint64("count")).
		Methods(avmkit.Method{
			Name:      "incr",
			Signature: "incr()uint64",
			Handler: func(ctx context.Context, call *avmkit.Call) error {
				count, err := call.Global.Value("count")
				if err != nil {
					return err
				}
				n, err := count.Uint64(ctx)
				if err != nil {
					return err
				}
				if err := count.SetUint64(ctx, n+1); err != nil {
					return err
				}
				call.SetReturn(binary.BigEndian.AppendUint64(nil, n+1))
				return nil
			},
		}).
		MustBuild()

	store := slotstore.NewMemory(int(app.GlobalRegistry().SlotSize()), int(state.Global.MaxKeys()))
	global := app.BindGlobal(store)

	sel := avmkit.Method{Signature: "incr()uint64"}.Selector()
	for i := 0; i < 3; i++ {
		ret, err := app.Dispatch(ctx, &avmkit.Call{
			Sender: "CALLER",
			Args:   [][]byte{sel[:]},
			Global: global,
		})
		if err != nil {
			panic(err)
		}
		fmt.Println(binary.BigEndian.Uint64(ret))
	}

	// Output:
	// 1
	// 2
	// 3
}
