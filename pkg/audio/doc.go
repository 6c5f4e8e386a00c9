// ABOUTME: Package documentation for audio types
// ABOUTME: Shared PCM format definitions used across the pipeline

// Package audio defines the PCM formats and sample conversions shared by
// the ingest and playback layers. Streams are mono linear PCM in one of
// two encodings (16-bit signed integer or 32-bit float, little-endian);
// decoded samples are normalized float32 in approximately [-1.0, 1.0].
package audio
