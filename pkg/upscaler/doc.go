// Package upscaler runs super-resolution engines behind a single-consumer
// job queue.
//
// An Engine wraps one backend: the waifu2x or Real-CUGAN ncnn-vulkan
// binaries, or an in-process resampler. A Worker owns exactly one Engine and
// feeds it jobs in arrival order. The Supervisor holds the current Worker,
// swaps it when the configuration changes and restarts it after a fault.
//
//	sup := upscaler.NewSupervisor(nil, logger, collector, tracer)
//	if err := sup.Init(upscaler.SettingsFromConfig(cfg)); err != nil {
//		return err
//	}
//	defer sup.Close()
//
//	img, format, err := sup.Upscale(ctx, decoded, transcode.FormatJPEG)
package upscaler
