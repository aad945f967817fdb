package main

import (
	"context"
	"flag"
	"fmt"
	"maps"
	"slices"
	"time"

	"parcel-relay-go/internal/common"
	"parcel-relay-go/internal/config"
	"parcel-relay-go/internal/lifecycle"
	"parcel-relay-go/internal/models"
	"parcel-relay-go/internal/parcel"
	"parcel-relay-go/internal/schedule"

	"go.uber.org/zap"
)

const (
	demoPassword = "relay123"
	pollStep     = time.Second
	maxPolls     = 60
)

type cast struct {
	seller      *models.User
	buyer       *models.User
	transporter *models.User
}

// clock advances the simulation either virtually or by sleeping
type clock struct {
	manual *schedule.Manual
}

func (c clock) advance(d time.Duration) {
	if c.manual != nil {
		c.manual.Advance(d)
		return
	}
	time.Sleep(d)
}

func registerCast(ctx context.Context, services *common.Services) (cast, error) {
	var c cast
	var err error

	if c.seller, err = services.AuthService.Register(ctx, "Ibu Sari", "081200000001", demoPassword, models.RoleSeller); err != nil {
		return c, fmt.Errorf("register seller: %w", err)
	}
	if c.buyer, err = services.AuthService.Register(ctx, "Budi", "081200000002", demoPassword, models.RoleBuyer); err != nil {
		return c, fmt.Errorf("register buyer: %w", err)
	}
	if c.transporter, err = services.AuthService.Register(ctx, "Mas Agus", "081200000003", demoPassword, models.RoleTransporter); err != nil {
		return c, fmt.Errorf("register transporter: %w", err)
	}

	for _, u := range []*models.User{c.seller, c.transporter} {
		if err := services.AuthService.Approve(ctx, u.Id); err != nil {
			return c, fmt.Errorf("approve %s: %w", u.Name, err)
		}
	}
	return c, nil
}

func submitAndMerge(session *lifecycle.Session, c cast, depot models.Depot, title, transportType string, latOffset float64) (models.Parcel, error) {
	intake, err := session.SubmitIntake(models.Intake{
		Title:          title,
		SellerId:       c.seller.Id,
		SellerName:     c.seller.Name,
		BuyerId:        c.buyer.Id,
		BuyerName:      c.buyer.Name,
		BuyerPhone:     c.buyer.Phone,
		BuyerAddress:   "Jl. Kebon Sirih 12",
		BuyerLatitude:  depot.Latitude + latOffset,
		BuyerLongitude: depot.Longitude,
		TransportType:  transportType,
		WeightKg:       2.5,
		DepotId:        depot.Id,
		OriginDistrict: depot.District,
	})
	if err != nil {
		return models.Parcel{}, err
	}

	p, err := session.MergeIntake(intake.Id)
	if err != nil {
		return models.Parcel{}, err
	}
	if p.Status == models.StatusAtDepot {
		return session.ReleaseFromDepot(p.Id)
	}
	return p, nil
}

// awaitHandoff advances until the parcel reaches its progress cap or maxPolls is spent
func awaitHandoff(session *lifecycle.Session, clk clock, parcelId string, progressCap int) (models.Parcel, error) {
	var p models.Parcel
	var err error
	for i := 0; i < maxPolls; i++ {
		clk.advance(pollStep)
		if p, err = session.GetParcel(parcelId); err != nil {
			return p, err
		}
		if p.Progress >= progressCap {
			break
		}
	}
	return p, nil
}

func runClaimedDelivery(ctx context.Context, session *lifecycle.Session, clk clock, cfg models.SimulationConfig, c cast, p models.Parcel) error {
	zap.L().Info("Transporter competing for parcel", zap.String("parcel_id", p.Id))
	if _, err := session.StartCompete(p.Id, c.transporter.Id); err != nil {
		return err
	}
	clk.advance(cfg.CompeteWindow / 2)

	if _, err := session.ConfirmCompete(p.Id, c.transporter.Id); err != nil {
		return err
	}
	if _, err := session.ScanAndStartTransit(p.Id, c.transporter.Id); err != nil {
		return err
	}
	if _, err := awaitHandoff(session, clk, p.Id, cfg.TransporterProgressCap); err != nil {
		return err
	}

	_, err := session.ConfirmDelivery(ctx, p.Id)
	return err
}

func runUnconfirmedWindow(session *lifecycle.Session, clk clock, cfg models.SimulationConfig, c cast, p models.Parcel) (models.Parcel, error) {
	zap.L().Info("Transporter lets the claim window lapse", zap.String("parcel_id", p.Id))
	if _, err := session.StartCompete(p.Id, c.transporter.Id); err != nil {
		return models.Parcel{}, err
	}
	clk.advance(cfg.CompeteWindow + pollStep)
	return session.GetParcel(p.Id)
}

func runDepotDispatch(ctx context.Context, session *lifecycle.Session, clk clock, cfg models.SimulationConfig, p models.Parcel) error {
	zap.L().Info("Depot dispatching parcel", zap.String("parcel_id", p.Id))
	if _, err := session.DispatchFromDepot(p.Id); err != nil {
		return err
	}
	if _, err := awaitHandoff(session, clk, p.Id, cfg.DepotProgressCap); err != nil {
		return err
	}

	_, err := session.ConfirmDelivery(ctx, p.Id)
	return err
}

func printParcels(session *lifecycle.Session) {
	common.PrintHeader("PARCELS (depot view)", common.WideWidth)
	views := session.ListParcels(parcel.ViewDepot)
	for i, v := range views {
		isLast := i == len(views)-1
		fmt.Printf("%s %-28s %-12s %3d%%  %4d km  fee %s\n",
			common.BoxPrefix(isLast), v.Title, v.DisplayStatus, v.Progress, v.DistanceKm,
			common.FormatAmount(v.Transaction.TransportFee))
		claimant := v.ClaimedByName
		if claimant == "" {
			claimant = "unclaimed"
		}
		fmt.Printf("%s   claimed by %s\n", common.BoxDetailPrefix(isLast), claimant)
	}
}

func printNotifications(session *lifecycle.Session) {
	common.PrintHeader("NOTIFICATIONS (newest first)", common.WideWidth)
	notifications := session.ListNotifications()
	for i, n := range notifications {
		fmt.Printf("%s [%s] %s\n", common.BoxPrefix(i == len(notifications)-1), n.CreatedAt.Format("15:04:05"), n.Text)
	}
}

func printHistory(session *lifecycle.Session) {
	common.PrintHeader("HISTORY", common.WideWidth)
	history := session.ListHistory()
	for i, h := range history {
		fmt.Printf("%s %-17s %-28s %s\n", common.BoxPrefix(i == len(history)-1), h.Kind, h.Snapshot.Title, common.FormatAmount(h.Amount))
	}
}

func printBalances(ctx context.Context, session *lifecycle.Session, names map[string]string) {
	for _, actorType := range []models.ActorType{models.ActorTransporter, models.ActorSeller} {
		balances, err := session.GetBalances(ctx, actorType)
		if err != nil {
			zap.L().Error("Failed to get balances", zap.String("actor_type", string(actorType)), zap.Error(err))
			continue
		}
		common.PrintHeader(fmt.Sprintf("%s BALANCES", actorType), common.WideWidth)
		for _, actorId := range slices.Sorted(maps.Keys(balances)) {
			balance := balances[actorId]
			name := names[actorId]
			if name == "" {
				name = actorId
			}
			fmt.Printf("│  %-24s %s\n", name, common.FormatAmount(balance))
		}
	}
}

func main() {
	ctx := context.Background()

	realtime := flag.Bool("realtime", false, "Run timers on the wall clock instead of a virtual clock")
	seed := flag.Uint64("seed", 7, "Seed for the simulation's random source (0 picks a time-based seed)")
	dbPath := flag.String("db", ":memory:", "SQLite database path for the run")
	flag.Parse()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}
	cfg.Database.Path = *dbPath
	cfg.Simulation.Seed = *seed

	var scheduler schedule.Scheduler = schedule.Real{}
	clk := clock{}
	if !*realtime {
		manual := schedule.NewManual(time.Date(2025, 1, 6, 8, 0, 0, 0, time.UTC))
		scheduler = manual
		clk.manual = manual
	}

	services, err := common.InitializeServices(ctx, cfg, scheduler)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	c, err := registerCast(ctx, services)
	if err != nil {
		zap.L().Fatal("Failed to register demo users", zap.Error(err))
	}

	session := services.Session
	depot := services.Network.Depots[0]

	batik, err := submitAndMerge(session, c, depot, "Batik tulis", "bike", 0.02)
	if err != nil {
		zap.L().Fatal("Failed to prepare parcel", zap.Error(err))
	}
	keripik, err := submitAndMerge(session, c, depot, "Keripik tempe (10 packs)", "motor", 0.05)
	if err != nil {
		zap.L().Fatal("Failed to prepare parcel", zap.Error(err))
	}
	rotan, err := submitAndMerge(session, c, depot, "Rotan chair", "truck", 0.12)
	if err != nil {
		zap.L().Fatal("Failed to prepare parcel", zap.Error(err))
	}

	if err := runClaimedDelivery(ctx, session, clk, cfg.Simulation, c, batik); err != nil {
		zap.L().Error("Claimed delivery failed", zap.String("parcel_id", batik.Id), zap.Error(err))
	}

	lapsed, err := runUnconfirmedWindow(session, clk, cfg.Simulation, c, keripik)
	if err != nil {
		zap.L().Error("Claim window run failed", zap.String("parcel_id", keripik.Id), zap.Error(err))
	} else {
		zap.L().Info("Claim window closed",
			zap.String("parcel_id", lapsed.Id),
			zap.String("status", string(lapsed.Status)),
			zap.String("claimed_by", lapsed.ClaimedBy))
	}

	if err := runDepotDispatch(ctx, session, clk, cfg.Simulation, rotan); err != nil {
		zap.L().Error("Depot dispatch failed", zap.String("parcel_id", rotan.Id), zap.Error(err))
	}

	names := map[string]string{
		c.seller.Id:      c.seller.Name,
		c.transporter.Id: c.transporter.Name,
	}
	for _, t := range services.Network.FallbackRoster {
		names[t.Id] = t.Name
	}

	printParcels(session)
	printNotifications(session)
	printHistory(session)
	printBalances(ctx, session, names)
	common.PrintFooter("Simulation complete", common.WideWidth)
}
