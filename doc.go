// Package empire is a client for the CSGOEmpire trading API.
//
// A Client always carries the REST client. With WithRealtime(true) it also
// keeps an identified connection to the trade socket: every time the socket
// connects, fresh credentials are fetched from the metadata endpoint and sent
// with an "identify" event.
//
//	c, err := empire.New(ctx, empire.WithAPIKey(key), empire.WithRealtime(true))
//	if err != nil {
//		return err
//	}
//	defer c.Close(context.Background())
//
//	sock, err := c.Socket()
//	if err != nil {
//		return err
//	}
//	sock.On("new_item", func(ev empire.Event) { ... })
//
// The socket view only subscribes; events cannot be emitted through it.
package empire
