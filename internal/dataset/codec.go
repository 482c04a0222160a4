package dataset

// Compact is the shorthand form of a Dataset used for durable snapshots.
// Field names are single letters to keep the persisted copy small. Client
// contact fields (email, preferred language, account number) are dropped on
// purpose: the snapshot only feeds aggregation, and keeping PII out of
// durable storage is intentional data minimization, not loss.
type Compact struct {
	P  []Partner        `json:"p"`
	C  []compactClient  `json:"c"`
	T  []compactTrade   `json:"t"`
	D  []compactDeposit `json:"d"`
	PT []PartnerTier    `json:"pt"`
}

type compactClient struct {
	ID  ID      `json:"id"`
	N   string  `json:"n"`
	J   Time    `json:"j"`
	AT  string  `json:"at,omitempty"`
	CO  string  `json:"co"`
	LD  float64 `json:"ld"`
	CP  string  `json:"cp,omitempty"`
	TL  string  `json:"tl,omitempty"`
	TI  string  `json:"ti"`
	SP  string  `json:"sp,omitempty"`
	PID string  `json:"pid"`
}

type compactTrade struct {
	ID ID      `json:"id"`
	DT Time    `json:"dt"`
	C  float64 `json:"c"`
	V  float64 `json:"v"`
}

type compactDeposit struct {
	ID ID      `json:"id"`
	DT Time    `json:"dt"`
	V  float64 `json:"v"`
}

// Compress maps a dataset to its compact snapshot form. A nil dataset yields
// nil.
func Compress(d *Dataset) *Compact {
	if d == nil {
		return nil
	}

	c := &Compact{
		P:  d.Partners,
		C:  make([]compactClient, 0, len(d.Clients)),
		T:  make([]compactTrade, 0, len(d.Trades)),
		D:  make([]compactDeposit, 0, len(d.Deposits)),
		PT: d.PartnerTiers,
	}

	for _, client := range d.Clients {
		c.C = append(c.C, compactClient{
			ID:  client.CustomerID,
			N:   client.Name,
			J:   client.JoinDate,
			AT:  client.AccountType,
			CO:  client.Country,
			LD:  client.LifetimeDeposits,
			CP:  client.CommissionPlan,
			TL:  client.TrackingLinkUsed,
			TI:  client.Tier,
			SP:  client.SubPartner,
			PID: client.PartnerID,
		})
	}

	for _, trade := range d.Trades {
		c.T = append(c.T, compactTrade{
			ID: trade.CustomerID,
			DT: trade.DateTime,
			C:  trade.Commission,
			V:  trade.Volume,
		})
	}

	for _, deposit := range d.Deposits {
		c.D = append(c.D, compactDeposit{
			ID: deposit.CustomerID,
			DT: deposit.DateTime,
			V:  deposit.Value,
		})
	}

	return c
}

// Decompress reconstructs the canonical dataset from its compact form. Fields
// dropped by Compress stay absent; this is not a full round trip. A nil
// compact yields nil.
func Decompress(c *Compact) *Dataset {
	if c == nil {
		return nil
	}

	d := &Dataset{
		Partners:     c.P,
		Clients:      make([]Client, 0, len(c.C)),
		Trades:       make([]Trade, 0, len(c.T)),
		Deposits:     make([]Deposit, 0, len(c.D)),
		PartnerTiers: c.PT,
	}

	for _, client := range c.C {
		d.Clients = append(d.Clients, Client{
			CustomerID:       client.ID,
			Name:             client.N,
			JoinDate:         client.J,
			AccountType:      client.AT,
			Country:          client.CO,
			LifetimeDeposits: client.LD,
			CommissionPlan:   client.CP,
			TrackingLinkUsed: client.TL,
			Tier:             client.TI,
			SubPartner:       client.SP,
			PartnerID:        client.PID,
		})
	}

	for _, trade := range c.T {
		d.Trades = append(d.Trades, Trade{
			CustomerID: trade.ID,
			DateTime:   trade.DT,
			Commission: trade.C,
			Volume:     trade.V,
		})
	}

	for _, deposit := range c.D {
		d.Deposits = append(d.Deposits, Deposit{
			CustomerID: deposit.ID,
			DateTime:   deposit.DT,
			Value:      deposit.V,
		})
	}

	d.Normalize()
	return d
}
